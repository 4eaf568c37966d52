package instance

import (
	"tabledb/internal/space"
	"tabledb/internal/table"
	"tabledb/internal/writeworker"
	"tabledb/pkg/schema"
	"tabledb/pkg/tableengine"
)

type CreateTableCommand struct {
	*writeworker.Responder[*table.Data]
	space     *space.Space
	tableData *table.Data
}

func newCreateTableCommand(sp *space.Space, d *table.Data) (*CreateTableCommand, <-chan writeworker.Result[*table.Data]) {
	r, rx := writeworker.NewResponder[*table.Data]()
	return &CreateTableCommand{Responder: r, space: sp, tableData: d}, rx
}

func (*CreateTableCommand) Kind() string { return "create_table" }

type OpenTableCommand struct {
	*writeworker.Responder[*table.Data]
	space     *space.Space
	tableData *table.Data
}

func newOpenTableCommand(sp *space.Space, d *table.Data) (*OpenTableCommand, <-chan writeworker.Result[*table.Data]) {
	r, rx := writeworker.NewResponder[*table.Data]()
	return &OpenTableCommand{Responder: r, space: sp, tableData: d}, rx
}

func (*OpenTableCommand) Kind() string { return "open_table" }

type CloseTableCommand struct {
	*writeworker.Responder[struct{}]
	space     *space.Space
	tableData *table.Data
}

func newCloseTableCommand(sp *space.Space, d *table.Data) (*CloseTableCommand, <-chan writeworker.Result[struct{}]) {
	r, rx := writeworker.NewResponder[struct{}]()
	return &CloseTableCommand{Responder: r, space: sp, tableData: d}, rx
}

func (*CloseTableCommand) Kind() string { return "close_table" }

// DropTableCommand carries the request since the table may not be open.
type DropTableCommand struct {
	*writeworker.Responder[bool]
	space   *space.Space
	request tableengine.DropTableRequest
}

func newDropTableCommand(sp *space.Space, req tableengine.DropTableRequest) (*DropTableCommand, <-chan writeworker.Result[bool]) {
	r, rx := writeworker.NewResponder[bool]()
	return &DropTableCommand{Responder: r, space: sp, request: req}, rx
}

func (*DropTableCommand) Kind() string { return "drop_table" }

type WriteCommand struct {
	*writeworker.Responder[int]
	cc        CommonContext
	space     *space.Space
	tableData *table.Data
	rows      []schema.Row
}

func newWriteCommand(cc CommonContext, sp *space.Space, d *table.Data, rows []schema.Row) (*WriteCommand, <-chan writeworker.Result[int]) {
	r, rx := writeworker.NewResponder[int]()
	return &WriteCommand{Responder: r, cc: cc, space: sp, tableData: d, rows: rows}, rx
}

func (*WriteCommand) Kind() string { return "write" }
