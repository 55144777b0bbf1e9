/*
Package compose provides a text/template-based composition engine over
trained Markov models. It turns single-shot generation into structured
documents: templates mix literal text with generated words, sentences
and paragraphs from any registered model.

A Manager holds the model registry, the engine configuration and the
template function map. Safety limits in Config cap what a template may
request, so untrusted templates cannot demand unbounded output. Renders
are concurrent-safe, and SetRand makes them reproducible for testing.
*/
package compose
