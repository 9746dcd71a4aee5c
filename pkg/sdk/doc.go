// Package studyrag provides an embedded Go client for the studyrag
// retrieval pipeline: ingest study material into a Redis-backed vector
// index and retrieve question-relevant passages without running the HTTP
// server.
//
//	client, _ := studyrag.New(ctx,
//	    studyrag.WithRedis("localhost:6379", ""),
//	    studyrag.WithOpenAI(os.Getenv("OPENAI_API_KEY"), ""),
//	)
//	defer client.Close()
//
//	client.EnsureCollection(ctx, "study_materials")
//	client.Ingest(ctx, "study_materials", chunks)
//	docs, _ := client.Retrieve(ctx, "what is mitosis", true)
//
// Retrieval runs the full pipeline: optional query expansion, per-variant
// KNN search, cross-variant merging, and contextual compression when a
// token budget is configured.
package studyrag
