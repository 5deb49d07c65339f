/*
Package crate provides the result-merging and pagination layer of a
distributed SQL query executor.

Rows arrive incrementally from multiple upstreams (shards, spilled files),
each delivering its data in discrete pages. The packages of this module
combine those pages into a single logical forward-only cursor:

  - merge holds the pluggable merge strategies (pass-through concatenation
    and sorted k-way merge) and the BatchPagingIterator cursor that
    orchestrates draining, asynchronous fetch-more rounds and resource
    release.
  - upstream adapts concrete paged sources to the cursor's collaborator
    contracts: the fetch-more provider, the completion predicate and the
    single-shot release sink.
  - future carries the one-shot completable values the fetch protocol is
    expressed in.

# Usage

	group := upstream.NewGroup(ctx, map[string]upstream.Source[Row]{
		"shard-1": shard1,
		"shard-2": shard2,
	}, nil)

	cursor := group.NewCursor(ctx, merge.PassThroughOneShot[string, Row]())
	defer cursor.Close()

	for {
		ok, err := cursor.MoveNext()
		if err != nil {
			cursor.Kill(err)
			return err
		}
		if ok {
			consume(cursor.Current())
			continue
		}
		if cursor.AllLoaded() {
			break
		}
		if _, err := cursor.LoadNextBatch(ctx).Await(ctx); err != nil {
			cursor.Kill(err)
			return err
		}
	}

Draining never blocks; the only suspension point is the future returned by
LoadNextBatch. Killing the cursor while a fetch is in flight leaves the
provider's future untouched: the upstream resolves or fails it on its own
schedule.
*/
package crate
