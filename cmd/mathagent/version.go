package main

import (
	"context"
	"fmt"

	"github.com/a-h/mathagent"
)

type VersionCommand struct {
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	fmt.Println(mathagent.Version)
	return nil
}
