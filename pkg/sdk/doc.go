// Package compdex embeds the comparable-property finder in a Go program.
//
// The client wires the same storage, providers and use cases as the
// compdex server, without the HTTP layer:
//
//	client, _ := compdex.New(ctx,
//	    compdex.WithFileStore("./data"),
//	    compdex.WithFixtureProvider("mls", "fixtures/mls.yaml"),
//	)
//	defer client.Close()
//
//	res, _ := client.FindComparables(ctx,
//	    compdex.Query{ParcelID: "123-456"},
//	    compdex.MaxComps(5),
//	)
//	_, _ = client.RecordFeedback(ctx, res.SelectionID, 0.9)
//
// A YAML file in the server's format can be loaded instead with
// WithConfigFile; the other options then override it.
package compdex
