// Package tagger classifies product photos into a category hierarchy
// without training: every leaf of the hierarchy is phrased as a few text
// prompts, the photo and the prompts are embedded in the same vector space,
// and the best-matching leaves are returned with their similarity scores.
//
// Quick start:
//
//	t, err := tagger.New(tagger.WithModelDir("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	f, _ := os.Open("sneaker.jpg")
//	defer f.Close()
//	cats, _ := t.Classify(ctx, f)
//	fmt.Println(cats[0].Label) // Fashion & Clothing - Shoes - sneakers
//
// A Tagger is safe for concurrent use. Create once, reuse across requests.
// The first classification embeds every prompt; call Warm to pay that cost
// up front.
package tagger
