// Package loader implements batched, resumable loading of paginated
// collections.
//
// A Session fetches a collection page by page, strictly sequentially, exposing
// running progress. The caller can pause (no further page requests are issued;
// an in-flight page is allowed to land and is kept) and later resume from the
// exact next unfetched page, with no loss and no duplication. A failed page
// puts the session in the errored state with everything loaded so far intact;
// resuming retries from the failed page.
//
// Example usage:
//
//	session := loader.NewSession(client.ParticipantPageFetcher(filters), 50)
//	session.OnProgress(func(loaded, total int) { render(loaded, total) })
//	if err := session.Start(ctx); err != nil {
//		return err
//	}
//	// ... later, from a UI control:
//	session.Pause()
//	// ... and later still:
//	session.Resume(ctx)
//
// Pages are requested one at a time so the accumulated items stay in page
// order and the reported total always belongs to the most recent response.
// Each run of the fetch loop carries the session's epoch; Reset bumps the
// epoch, so a page landing after a reset is discarded rather than appended
// into the replacement session's items.
package loader
