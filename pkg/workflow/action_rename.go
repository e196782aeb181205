package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/api"
)

// RenameAction renames the event's file in place using a pattern.
//
// Supported pattern variables:
//   - {name}     original filename without extension
//   - {ext}      original extension (without the dot)
//   - {date}     current date (YYYY-MM-DD)
//   - {time}     current time (HH-MM-SS)
//   - {datetime} combined date and time
//   - {counter}  auto-incrementing counter for uniqueness
type RenameAction struct {
	Pattern string
}

func (a *RenameAction) Name() string { return "rename" }

func (a *RenameAction) Validate() error {
	if a.Pattern == "" {
		return errx.With(api.ErrInvalidConfig, ": rename pattern cannot be empty")
	}
	return nil
}

func (a *RenameAction) Execute(_ context.Context, event api.Event) (api.ActionResult, error) {
	source, ok := eventSubject(event)
	if !ok {
		return api.Fail("rename action only supports file creation/modification events"), nil
	}
	if _, err := os.Stat(source); err != nil {
		return api.Fail(fmt.Sprintf("source file does not exist: %s", source)), nil
	}

	dest := a.applyPattern(source)
	if dest == source {
		return api.Succeed("no rename needed (same name)"), nil
	}
	if _, err := os.Stat(dest); err == nil {
		return api.Fail(fmt.Sprintf("destination already exists: %s", dest)), nil
	}

	if err := os.Rename(source, dest); err != nil {
		return api.ActionResult{}, errx.Wrap(api.ErrActionFailed, err)
	}
	return api.Succeed(fmt.Sprintf("renamed to %s", dest)).WithPaths(dest), nil
}

func (a *RenameAction) applyPattern(source string) string {
	base := filepath.Base(source)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	name := strings.TrimSuffix(base, filepath.Ext(base))
	now := time.Now().UTC()

	out := a.Pattern
	out = strings.ReplaceAll(out, "{name}", name)
	out = strings.ReplaceAll(out, "{ext}", ext)
	out = strings.ReplaceAll(out, "{date}", now.Format("2006-01-02"))
	out = strings.ReplaceAll(out, "{time}", now.Format("15-04-05"))
	out = strings.ReplaceAll(out, "{datetime}", now.Format("20060102_150405"))

	dir := filepath.Dir(source)
	if strings.Contains(out, "{counter}") {
		for counter := 1; ; counter++ {
			candidate := strings.ReplaceAll(out, "{counter}", strconv.Itoa(counter))
			if _, err := os.Stat(filepath.Join(dir, candidate)); err != nil || counter > 9999 {
				out = candidate
				break
			}
		}
	}
	return filepath.Join(dir, out)
}
