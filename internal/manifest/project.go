package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Project is the pass-through project context of a manifest.
type Project struct {
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version" yaml:"version"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Frameworks  []string `json:"frameworks" yaml:"frameworks"`
}

type packageJSON struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Description      string            `json:"description"`
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
}

// frameworks maps a framework to the package names that indicate it. The
// table order is the output order.
var frameworks = []struct {
	name     string
	packages []string
}{
	{"express", []string{"express"}},
	{"fastify", []string{"fastify"}},
	{"koa", []string{"koa"}},
	{"hapi", []string{"@hapi/hapi", "hapi"}},
	{"nestjs", []string{"@nestjs/core"}},
	{"next", []string{"next"}},
	{"nuxt", []string{"nuxt"}},
	{"react", []string{"react"}},
	{"vue", []string{"vue"}},
	{"svelte", []string{"svelte", "@sveltejs/kit"}},
	{"angular", []string{"@angular/core"}},
	{"prisma", []string{"@prisma/client", "prisma"}},
	{"typeorm", []string{"typeorm"}},
	{"sequelize", []string{"sequelize"}},
	{"knex", []string{"knex"}},
	{"drizzle", []string{"drizzle-orm"}},
	{"mongoose", []string{"mongoose"}},
	{"trpc", []string{"@trpc/server"}},
	{"graphql", []string{"graphql"}},
}

// ReadProject reads package.json under root. Without one the project is
// named after the directory with version 0.0.0.
func ReadProject(root string) (Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Project{}, fmt.Errorf("manifest: resolve root: %w", err)
	}
	proj := Project{Name: filepath.Base(abs), Version: "0.0.0", Frameworks: []string{}}

	data, err := os.ReadFile(filepath.Join(abs, "package.json"))
	if errors.Is(err, os.ErrNotExist) {
		return proj, nil
	}
	if err != nil {
		return Project{}, fmt.Errorf("manifest: read package.json: %w", err)
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return Project{}, fmt.Errorf("manifest: parse package.json: %w", err)
	}
	if pkg.Name != "" {
		proj.Name = pkg.Name
	}
	if pkg.Version != "" {
		proj.Version = pkg.Version
	}
	proj.Description = pkg.Description
	proj.Frameworks = detectFrameworks(pkg)
	return proj, nil
}

func detectFrameworks(pkg packageJSON) []string {
	has := func(name string) bool {
		_, a := pkg.Dependencies[name]
		_, b := pkg.DevDependencies[name]
		_, c := pkg.PeerDependencies[name]
		return a || b || c
	}
	found := []string{}
	for _, fw := range frameworks {
		for _, p := range fw.packages {
			if has(p) {
				found = append(found, fw.name)
				break
			}
		}
	}
	return found
}
