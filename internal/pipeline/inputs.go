package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fileconv/internal/blobstore"
	"fileconv/internal/convert"
	"fileconv/internal/fileutil"
	"fileconv/internal/jobstore"
	"fileconv/internal/recipes"
	"fileconv/internal/services"
	"fileconv/internal/workspace"
)

// stageInputs downloads every upload into the workspace under a sanitized
// name. Uploads whose base name is already taken get the first free -2, -3, ...
// suffix so their artifacts cannot overwrite each other.
func (o *Orchestrator) stageInputs(ctx context.Context, recipe recipes.Recipe, uploads []jobstore.Input, ws *workspace.Workspace) ([]convert.Input, error) {
	taken := make(map[string]bool, len(uploads))
	inputs := make([]convert.Input, 0, len(uploads))
	for _, up := range uploads {
		display := up.Filename
		if strings.TrimSpace(display) == "" {
			display = up.Key[strings.LastIndex(up.Key, "/")+1:]
		}
		if !recipe.Accepts(display, up.ContentType) {
			return nil, services.Wrap(services.ErrValidation, "pipeline", "inputs",
				fmt.Sprintf("%s is not a supported file for %s.", display, recipe.Pair()), nil)
		}

		name := uniqueName(fileutil.SanitizeFileName(display), taken)

		dest := ws.InputPath(name)
		if _, err := blobstore.Download(ctx, o.blobs, up.Key, dest); err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return nil, services.Wrap(services.ErrValidation, "pipeline", "inputs",
					fmt.Sprintf("The uploaded file %s is missing.", display), err)
			}
			return nil, services.Wrap(services.ErrStorage, "pipeline", "inputs",
				fmt.Sprintf("Could not download %s.", display), err)
		}
		inputs = append(inputs, convert.Input{
			Path:        dest,
			Name:        name,
			ContentType: up.ContentType,
			Recipe:      recipe,
		})
	}
	return inputs, nil
}

// uniqueName returns name, or name with the lowest free numeric suffix, and
// marks its base as taken. Bases are compared without case or extension
// because handlers derive artifact names from the base alone.
func uniqueName(name string, taken map[string]bool) string {
	base, ext := fileutil.SplitExt(name)
	candidate := base
	for n := 2; taken[strings.ToLower(candidate)]; n++ {
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	taken[strings.ToLower(candidate)] = true
	if ext != "" {
		return candidate + "." + ext
	}
	return candidate
}
