package installer

import (
	"context"
	"fmt"
	"strings"

	"devsetup/internal/config"
)

// Verify smoke-tests an installed component: its verify command must exit
// zero and every profile block it owns must be present. Verification never
// retries and never changes anything.
func (in *Installer) Verify(ctx context.Context, c config.Component) error {
	var problems []string

	if len(c.Verify) > 0 {
		args := in.expandArgs(c.Verify)
		out, err := in.run.Output(ctx, args[0], args[1:]...)
		if err != nil {
			problems = append(problems, err.Error())
		} else {
			in.log.Info("%s: %s", c.Name, firstLine(out))
		}
	}

	if in.profile != nil {
		for _, b := range c.Profile {
			ok, err := in.profile.HasBlock(b.Description)
			if err != nil {
				problems = append(problems, err.Error())
				continue
			}
			if !ok {
				problems = append(problems, fmt.Sprintf("%q missing from %s", b.Description, in.profile.Path()))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s not healthy: %s", c.Name, strings.Join(problems, "; "))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
