package archive

import "errors"

func eventType(err error) string {
	switch {
	case errors.Is(err, ErrCollision):
		return "archive_collision"
	case errors.Is(err, ErrIntegrity):
		return "archive_integrity"
	default:
		return "archive_copy_failed"
	}
}

func hint(err error) string {
	switch {
	case errors.Is(err, ErrCollision):
		return "a different file already occupies the destination; rename or remove one of them"
	case errors.Is(err, ErrIntegrity):
		return "check the target filesystem and source media for errors"
	default:
		return "check permissions and free space on the target"
	}
}
