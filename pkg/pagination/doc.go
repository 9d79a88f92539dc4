// Package pagination normalizes paged responses of the course backend and
// drives paged list endpoints.
//
// The backend answers list requests in several shapes: a bare array, an
// object with camelCase or PascalCase keys, and either of those inside a
// data envelope. Normalize turns all of them into one PagedResult:
//
//	result, err := pagination.Decode[blog.Post](body, 1, 20)
//	fmt.Println(result.Items, result.TotalPages, result.HasNext)
//
// Pager keeps the page, page size, search and filter state of one list
// view. It debounces search input, cancels superseded requests and never
// lets a stale response overwrite a newer one:
//
//	pager := pagination.NewPager[blog.Post](svc.AdminPostsFetcher())
//	pager.Start(ctx)
//	pager.SetSearch("گو")      // applied after 300ms of quiet
//	pager.SetParams(pagination.Params{"status": "published"})
//	snap := pager.Snapshot()
//
// BatchFetcher walks every page of an endpoint with a small worker pool:
//
//	bf := pagination.NewBatchFetcher(fetcher, pagination.DefaultConfig())
//	posts, err := pagination.FetchAll[blog.Post](ctx, bf)
package pagination
