/*
Package dsl provides a fluent builder for decision graphs.

It is useful for tests and for embedding a small questionnaire in a Go
program without shipping a YAML file or a Markdown directory.

Example usage:

	b := dsl.New()
	b.Add("discharge").Ask("Is there discharge from the eye?", "pain", "healthy")
	b.Add("pain").Ask("Is there eye pain?", "acute", "allergic")
	b.Add("acute").Diagnosis("Acute conjunctivitis")
	b.Add("allergic").Diagnosis("Allergic conjunctivitis")
	b.Add("healthy").Diagnosis("No abnormality")

	g, err := b.Graph()
*/
package dsl
