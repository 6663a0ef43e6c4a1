// Package download runs the download pipeline for MOOV albums.
//
// # Manager
//
// The Manager coordinates the entire run:
//
//  1. Sign in (a failure ends the run)
//  2. For every album URL, fetch the album metadata
//  3. For every track, pick a quality and fetch its FileMeta
//  4. Fetch and decrypt the segments, then join them (StreamDownloader)
//  5. Tag the file, embed the cover and rename it to its final name
//  6. Save lyrics, remove the cover unless it is kept, write a playlist
//
// Albums and tracks are processed one at a time. A failing track is
// reported and the next one starts; the same holds for albums.
//
// # Basic Usage
//
//	manager := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	}, download.WithLogger(logger))
//
//	results, err := manager.Run(ctx, urls)
//	if err != nil {
//	    log.Fatal(err) // login failed or ctx was cancelled
//	}
//
// # Interrupts
//
// SkipCurrentAlbum cancels the album in progress. Its working files are
// removed and the run continues with the next album. Cancelling the context
// passed to Run stops the run.
//
// # Progress Tracking
//
// Messages are delivered as ProgressEvent values. Segment progress for the
// track being downloaded goes to a SegmentBar; NewTerminalBars draws one on
// a terminal.
package download
