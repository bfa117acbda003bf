package api

import (
	"io"
	"log"
)

// captureLog redirects the standard logger to w until restore is called.
func captureLog(w io.Writer) (restore func()) {
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(w)
	log.SetFlags(0)
	return func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	}
}
