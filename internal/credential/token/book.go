// Package token implements the non-transferable token bookkeeping shared by
// the credential registries: sequential token ids, ownership and per-holder
// balances.
//
// Tokens are never transferred by their holders. The issuing registry may
// reassign a token when it corrects the holder of a credential; the book
// keeps balances consistent across such reassignments.
package token

import (
	id "trafficreg/pkg/domain"
)

// Stats are the registry-wide token counters.
type Stats struct {
	EmittedCount uint64 `json:"emitted_count"`
	HoldersCount uint64 `json:"holders_count"`
}

// Book tracks token ownership for one registry. It is not safe for
// concurrent use; the owning store guards it.
type Book struct {
	last     id.TokenID
	owners   map[id.TokenID]id.Address
	balances map[id.Address]uint64
}

func NewBook() *Book {
	return &Book{
		owners:   make(map[id.TokenID]id.Address),
		balances: make(map[id.Address]uint64),
	}
}

// Mint assigns the next token id to holder. Ids start at 1 and are never
// reused.
func (b *Book) Mint(holder id.Address) id.TokenID {
	b.last++
	b.owners[b.last] = holder
	b.balances[holder]++
	return b.last
}

// Reassign moves tokenID to holder. Unknown tokens are ignored.
func (b *Book) Reassign(tokenID id.TokenID, holder id.Address) {
	prev, ok := b.owners[tokenID]
	if !ok || prev == holder {
		return
	}
	b.balances[prev]--
	if b.balances[prev] == 0 {
		delete(b.balances, prev)
	}
	b.owners[tokenID] = holder
	b.balances[holder]++
}

func (b *Book) OwnerOf(tokenID id.TokenID) (id.Address, bool) {
	owner, ok := b.owners[tokenID]
	return owner, ok
}

func (b *Book) BalanceOf(holder id.Address) uint64 {
	return b.balances[holder]
}

func (b *Book) Stats() Stats {
	return Stats{EmittedCount: uint64(b.last), HoldersCount: uint64(len(b.balances))}
}

// Clone returns an independent copy.
func (b *Book) Clone() *Book {
	c := &Book{
		last:     b.last,
		owners:   make(map[id.TokenID]id.Address, len(b.owners)),
		balances: make(map[id.Address]uint64, len(b.balances)),
	}
	for k, v := range b.owners {
		c.owners[k] = v
	}
	for k, v := range b.balances {
		c.balances[k] = v
	}
	return c
}
