// Package wpgraphql is a small client for the WPGraphQL endpoint of a headless
// WordPress installation.
//
// # Overview
//
// Every request is a single HTTP POST carrying a JSON body of the form
//
//	{"query": "...", "variables": {...}}
//
// Each attempt is bounded by a per-attempt timeout derived from the caller's
// context. Transport failures and HTTP 5xx responses are retried a bounded
// number of times with a linear backoff (RetryBackoff, 2*RetryBackoff, ...).
// Anything else (4xx, undecodable bodies, GraphQL errors) fails immediately.
//
// When the response carries a non-empty "errors" array the first entry is
// returned as a *GraphQLError and "data" is ignored.
//
// # Caching
//
// Requests with a positive TTL are looked up in, and written to, an optional
// Cache. Identical cacheable requests that are in flight at the same time are
// collapsed into one upstream call. Mutations must always be sent with TTL 0.
//
// # Usage Example
//
//	client, err := wpgraphql.New(wpgraphql.Options{
//		Endpoint:   "https://cms.example.com/graphql",
//		Timeout:    10 * time.Second,
//		MaxRetries: 2,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	var data struct {
//		GeneralSettings struct {
//			Title string `json:"title"`
//		} `json:"generalSettings"`
//	}
//	err = client.Do(ctx, wpgraphql.Request{
//		Query: `{ generalSettings { title } }`,
//		TTL:   time.Minute,
//	}, &data)
package wpgraphql
