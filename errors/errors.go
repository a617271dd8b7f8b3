package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrFileExists      = fmt.Errorf("file already exists")
	ErrFileNotFound    = fmt.Errorf("file not found")
	ErrTooManyFiles    = fmt.Errorf("workspace file limit reached")
	ErrInvalidFilename = fmt.Errorf("invalid filename")
	ErrTooLarge        = fmt.Errorf("content exceeds the size limit")
	ErrNotPermitted    = fmt.Errorf("role does not permit this operation")

	ErrNoTransfer         = fmt.Errorf("no transfer in progress for sender")
	ErrTransferIncomplete = fmt.Errorf("transfer ended with missing chunks")
	ErrTransferName       = fmt.Errorf("transfer end names a different artifact")
	ErrSizeMismatch       = fmt.Errorf("assembled payload does not match declared size")

	ErrBadDirective = fmt.Errorf("directive token invalid")
	ErrJoinTimeout  = fmt.Errorf("join attempt timed out")
	ErrClosed       = fmt.Errorf("connection closed")
	ErrCodeTaken    = fmt.Errorf("session code already listening")
)
