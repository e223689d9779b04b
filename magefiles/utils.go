//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

const (
	shaderDir     = "shaders"
	shaderInclude = "common.glsl"
	// matches the API version requested by the vulkan backend
	shaderTargetEnv = "vulkan1.1"
)

func shaderBinDir() string {
	return filepath.Join(shaderDir, "bin")
}

// glslc compiles one shader stage to shaders/bin/<stage>.spv. Stages whose
// binary is newer than both the source and the shared include are skipped.
func glslc(stage string) error {
	src := filepath.Join(shaderDir, stage)
	dst := filepath.Join(shaderBinDir(), stage+".spv")

	stale, err := target.Path(dst, src, filepath.Join(shaderDir, shaderInclude))
	if err != nil {
		return fmt.Errorf("checking %s: %w", stage, err)
	}
	if !stale {
		if mg.Verbose() {
			fmt.Printf("%s is up to date\n", dst)
		}
		return nil
	}
	if err := os.MkdirAll(shaderBinDir(), 0o755); err != nil {
		return err
	}
	fmt.Printf("Compiling %s\n", src)
	if err := sh.RunV("glslc", "--target-env="+shaderTargetEnv, "-I", shaderDir, "-o", dst, src); err != nil {
		return fmt.Errorf("compiling %s: %w", stage, err)
	}
	return nil
}

// goTool runs the go command of the mage build with its output on the
// terminal.
func goTool(args ...string) error {
	return sh.RunV(mg.GoCmd(), args...)
}
