//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the viewer with creep.toml.
func (Run) Viewer() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run viewer...")
	return goTool("run", ".", "-config", "creep.toml")
}

// Runs the viewer on the headless backend.
func (Run) Headless() error {
	return goTool("run", ".", "-backend", "headless")
}

type Test mg.Namespace

// Runs every package test with the race detector.
func (Test) All() error {
	return goTool("test", "-race", "./...")
}
