/*
Package markov implements an in-memory n-gram Markov chain over word
tokens: training from a token stream, weighted random text generation,
and a portable JSON model document.

A model maps every window of `order` consecutive tokens observed in the
corpus to the distribution of tokens that followed it. Generation starts
from a seed window and repeatedly samples a successor with probability
proportional to its observed frequency, sliding the window forward one
token at a time until the word budget is spent or a window with no
recorded successors is reached.

Models are immutable once built or imported and are safe for concurrent
readers. All randomness flows through an injectable source
(WithRand), so generation is reproducible when a seeded source is
supplied.
*/
package markov
