package instance

import (
	"fmt"

	"tabledb/pkg/types"
)

// Error is a table lifecycle failure. Kind is one of the dberrors sentinels;
// errors.Is matches both Kind and the underlying cause.
type Error struct {
	Kind    error
	SpaceID types.SpaceID
	Table   string
	TableID types.TableID
	Err     error
}

func newError(kind error, spaceID types.SpaceID, table string, tableID types.TableID, err error) *Error {
	return &Error{
		Kind:    kind,
		SpaceID: spaceID,
		Table:   table,
		TableID: tableID,
		Err:     err,
	}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v, space_id:%d, table:%s, table_id:%d", e.Kind, e.SpaceID, e.Table, e.TableID)
	if e.Err != nil {
		msg += ", err:" + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
