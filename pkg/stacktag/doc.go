// Package stacktag predicts Stack Overflow tags for question titles.
//
// Quick start:
//
//	t, err := stacktag.New(stacktag.WithArtefactDir("artefacts/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	tags, _ := t.Predict(ctx, "How to parse JSON in PHP?")
//	fmt.Println(tags[0].Name) // php
//
// A Tagger is safe for concurrent use. Create once, reuse across requests.
// Train produces the artefacts New loads.
package stacktag
