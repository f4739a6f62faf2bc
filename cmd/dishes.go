package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// dishList is the mapping form of a YAML dish file.
type dishList struct {
	Dishes []string `yaml:"dishes"`
}

// loadDishes reads a dish list. YAML files hold either a sequence of names
// or a mapping with a "dishes" key; any other file is one dish per line
// with blank lines and # comments ignored.
func loadDishes(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadDishesYAML(path)
	default:
		return loadDishesText(path)
	}
}

func loadDishesYAML(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read dish file %s", path)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, eris.Wrapf(err, "parse dish file %s", path)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var dishes []string
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		err = node.Content[0].Decode(&dishes)
	case yaml.MappingNode:
		var l dishList
		err = node.Content[0].Decode(&l)
		dishes = l.Dishes
	default:
		err = eris.New("expected a list of dishes or a mapping with a dishes key")
	}
	if err != nil {
		return nil, eris.Wrapf(err, "decode dish file %s", path)
	}
	return cleanDishes(dishes), nil
}

func loadDishesText(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open dish file %s", path)
	}
	defer func() { _ = f.Close() }()

	var dishes []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dishes = append(dishes, line)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "read dish file %s", path)
	}
	return dishes, nil
}

func cleanDishes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}
