// Package ncchview parses NCCH containers, the content format of the
// Nintendo 3DS, also known as CTR.
//
// The main goal is to open decrypted, seekable streams over the sections
// of a container without staging anything on disk. Keys are derived from
// the header alone: the hardware key scrambler is replayed in software,
// and seed-encrypted titles are supported through an external seed
// database. Embedded SHA-256 hashes are exposed for callers to verify,
// but nothing is trusted or enforced here.
//
// This package comes with a CLI. You can install it like this:
//   go install github.com/connesc/ncchview/cmd/ncchview@latest
package ncchview
