package dberrors

import "errors"

var (
	ErrNotFound = errors.New("tabledb: not found")
	ErrClosed   = errors.New("tabledb: closed")

	// Table lifecycle failures. Instance errors wrap exactly one of these so
	// callers can branch with errors.Is.
	ErrInvalidOptions       = errors.New("tabledb: invalid table options")
	ErrCreateTableData      = errors.New("tabledb: failed to create table data")
	ErrWriteManifest        = errors.New("tabledb: failed to write manifest")
	ErrOperateByWriteWorker = errors.New("tabledb: failed to operate by write worker")
	ErrReadMeta             = errors.New("tabledb: failed to read table meta")
	ErrReadWal              = errors.New("tabledb: failed to read wal")
	ErrWriteWal             = errors.New("tabledb: failed to write wal")
	ErrInvalidRow           = errors.New("tabledb: invalid row")
	ErrTableDropped         = errors.New("tabledb: table dropped")
	ErrTableClosed          = errors.New("tabledb: table closed")

	// ErrClose wraps a failure to shut the engine down.
	ErrClose = errors.New("tabledb: failed to close engine")
)
