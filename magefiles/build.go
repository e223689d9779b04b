//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderSources = []string{
	"default.vert",
	"default.frag",
	"sky.vert",
	"sky.frag",
}

// Compiles the GLSL shaders to SPIR-V in shaders/bin.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the viewer binary.
func (Build) Viewer() error {
	mg.Deps(Build.Shaders)
	return goTool("build", "-o", "bin/creep", ".")
}

func buildShaders() error {
	for _, stage := range shaderSources {
		if err := glslc(stage); err != nil {
			return err
		}
	}
	return nil
}
