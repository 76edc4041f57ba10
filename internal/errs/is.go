package errs

import "errors"

// IsNotExist reports whether err is (or wraps) a FileDoesNotExist.
func IsNotExist(err error) bool {
	var target *FileDoesNotExist
	return errors.As(err, &target)
}

// IsAlreadyExist reports whether err is (or wraps) a FileAlreadyExist.
func IsAlreadyExist(err error) bool {
	var target *FileAlreadyExist
	return errors.As(err, &target)
}

// IsInvalidPath reports whether err is (or wraps) an InvalidPath.
func IsInvalidPath(err error) bool {
	var target *InvalidPath
	return errors.As(err, &target)
}

// IsSuspectedFileSize reports whether err is (or wraps) a SuspectedFileSize.
func IsSuspectedFileSize(err error) bool {
	var target *SuspectedFileSize
	return errors.As(err, &target)
}

// IsUnknownWorker reports whether err is (or wraps) an UnknownWorker.
func IsUnknownWorker(err error) bool {
	var target *UnknownWorker
	return errors.As(err, &target)
}
