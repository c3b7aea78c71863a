package filings

import (
	"github.com/rzbill/filings/internal/bulk"
	"github.com/rzbill/filings/internal/dispatch"
)

// Command is the closed set of filings requests. The unexported marker keeps
// other packages from adding variants.
type Command interface {
	dispatch.Command
	filingsCommand()
}

const (
	cmdGet    = "filings.get"
	cmdList   = "filings.list"
	cmdCreate = "filings.create"
)

// GetFiling fetches one filing by id.
type GetFiling struct {
	ID uint64
}

// ListFilings fetches a page of a source's filings, optionally filtered by a
// CEL expression.
type ListFilings struct {
	Source   string
	PageSize int
	After    uint64
	Filter   string
}

// CreateFilings inserts new filings, assigning their ids.
type CreateFilings struct {
	Items []Filing
}

func (GetFiling) CommandName() string     { return cmdGet }
func (ListFilings) CommandName() string   { return cmdList }
func (CreateFilings) CommandName() string { return cmdCreate }

func (GetFiling) filingsCommand()     {}
func (ListFilings) filingsCommand()   {}
func (CreateFilings) filingsCommand() {}

// CreateResult reports a CreateFilings call. Ids FirstID..FirstID+Count-1
// were assigned in input order; rows that failed keep their id unused.
type CreateResult struct {
	FirstID uint64      `json:"first_id"`
	Count   int         `json:"count"`
	Result  bulk.Result `json:"result"`
}
