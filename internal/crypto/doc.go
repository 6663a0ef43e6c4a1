// Package crypto decrypts MOOV HLS audio segments.
//
// Every segment of a track is encrypted with AES-128 in CBC mode. The key is
// the MD5 digest of the track's content key followed by a fixed secret, and
// the IV is the same for every segment of every track:
//
//	key := crypto.DeriveKey(meta.ContentKey, crypto.Secret)
//	plain, err := crypto.Decrypt(segment, key[:], crypto.SegmentIV[:])
package crypto
