// Package moov is the client for the MOOV streaming API.
//
// It covers the four calls the downloader needs:
//
//  1. Authenticate: form login, kept in the session cookie jar
//  2. Album: profile/getProfile, converted to model.Album via the dto package
//  3. FileMeta: content/checkout, the per-track HLS descriptor
//  4. Lyrics: lyric/getLyric, LRC text or "" when a track has none
//
// # Basic Usage
//
//	client := moov.NewClient(mhttp.NewClient())
//	if err := client.Authenticate(ctx, email, password); err != nil {
//	    log.Fatal(err)
//	}
//
//	id, err := moov.ExtractAlbumID("https://moov.hk/#/album/VAAAAAAAAAAAA")
//	album, err := client.Album(ctx, id, model.LanguageEnglish)
//
//	for _, track := range album.Tracks {
//	    q, _, err := moov.SelectQuality(model.QualityHiRes, track.Qualities)
//	    meta, err := client.FileMeta(ctx, track.ID, q)
//	    // ...
//	}
//
// The upstream wire format is not documented; the dto package reads only the
// fields the downloader uses and ignores the rest.
package moov
