package main

import (
	"bufio"
	"bytes"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/acksell/ddbkeys/dynamodb/schema"
)

// skipDirs are never searched for generated schema files.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"amplify":      true,
}

// discoverSchemaFiles finds every schema_dynamodb.yaml below root. Inside a
// git work tree it asks git, which honours .gitignore; otherwise it walks the
// directory tree.
func discoverSchemaFiles(root string) ([]string, error) {
	if files, err := discoverWithGit(root); err == nil && len(files) > 0 {
		return files, nil
	}
	return discoverWithWalk(root)
}

func discoverWithGit(root string) ([]string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, err
	}
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var files []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if filepath.Base(line) == schema.FileName {
			files = append(files, filepath.Join(root, line))
		}
	}
	return files, scanner.Err()
}

func discoverWithWalk(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == schema.FileName {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
