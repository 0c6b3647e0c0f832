package metadata

import (
	"encoding/binary"
	"errors"
	"strings"

	"github.com/mr-tron/base58"
)

// metadataV1Key is the account discriminator of Metaplex MetadataV1.
const metadataV1Key = 4

var errShortData = errors.New("metaplex data truncated")

// OnChainMetadata is the subset of a Metaplex metadata account used for display.
type OnChainMetadata struct {
	Name       string
	Symbol     string
	URI        string
	Collection string // collection mint, empty when absent
	Verified   bool   // collection verified flag
}

// borshReader walks a borsh-encoded buffer.
type borshReader struct {
	buf []byte
	off int
	err error
}

func (r *borshReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = errShortData
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *borshReader) u8() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *borshReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *borshReader) str(max uint32) string {
	n := r.u32()
	if r.err == nil && n > max {
		r.err = errors.New("metaplex string too long")
		return ""
	}
	return strings.TrimRight(string(r.take(int(n))), "\x00 ")
}

// option reads a borsh Option tag and reports presence.
func (r *borshReader) option() bool {
	return r.u8() == 1
}

// ParseMetaplex decodes name, symbol, uri and the collection of a MetadataV1 account.
// Layout: key u8 | update_authority [32] | mint [32] | name | symbol | uri |
// seller_fee u16 | Option<Vec<Creator>> | primary_sale bool | mutable bool |
// Option<u8> edition_nonce | Option<u8> token_standard | Option<Collection> ...
// Accounts written before the collection field existed parse without a collection.
func ParseMetaplex(data []byte) (*OnChainMetadata, error) {
	r := &borshReader{buf: data}
	if r.u8() != metadataV1Key {
		if r.err != nil {
			return nil, r.err
		}
		return nil, errors.New("not a metaplex metadata account")
	}
	r.take(64)

	m := &OnChainMetadata{
		Name:   r.str(200),
		Symbol: r.str(50),
		URI:    r.str(400),
	}
	if r.err != nil {
		return nil, r.err
	}

	r.take(2) // seller_fee_basis_points
	if r.option() {
		creators := r.u32()
		r.take(int(creators) * 34) // address [32] | verified bool | share u8
	}
	r.take(2) // primary_sale_happened, is_mutable
	if r.option() {
		r.u8() // edition_nonce
	}
	if r.option() {
		r.u8() // token_standard
	}
	if r.option() {
		verified := r.u8() == 1
		key := r.take(32)
		if r.err == nil {
			m.Verified = verified
			m.Collection = base58.Encode(key)
		}
	}
	return m, nil
}
