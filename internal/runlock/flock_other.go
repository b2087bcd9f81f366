//go:build !unix

package runlock

import (
	"errors"
	"os"
)

func tryLock(*os.File) error {
	return errors.New("run lock is only supported on unix")
}

func unlock(*os.File) error {
	return nil
}
