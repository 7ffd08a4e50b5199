package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	// A cancelled context means the user interrupted; the signal already
	// told them, so skip the redundant error line.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "novelkit: %v\n", err)
	}
	os.Exit(1)
}
