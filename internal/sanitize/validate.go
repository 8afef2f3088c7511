package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validation errors for tool inputs.
var (
	// ErrPathTraversal indicates a value contains directory traversal sequences.
	ErrPathTraversal = errors.New("value contains directory traversal")

	// ErrInvalidOwner indicates a repository owner is not a valid login.
	ErrInvalidOwner = errors.New("invalid repository owner")

	// ErrInvalidRepo indicates a repository name is malformed.
	ErrInvalidRepo = errors.New("invalid repository name")

	// ErrInvalidState indicates an unsupported issue state filter.
	ErrInvalidState = errors.New("invalid issue state")

	// ErrInvalidBranch indicates a branch name git would not accept.
	ErrInvalidBranch = errors.New("invalid branch name")
)

// ownerPattern matches GitHub logins: alphanumerics and single hyphens, max 39 chars.
var ownerPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9]){0,38}$`)

// repoPattern matches repository names, max 100 chars.
var repoPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,100}$`)

// ValidateOwner checks that owner is a plausible user or organization login.
func ValidateOwner(owner string) error {
	if owner == "" {
		return fmt.Errorf("%w: empty", ErrInvalidOwner)
	}
	if strings.ContainsAny(owner, `/\`) {
		return fmt.Errorf("%w: contains path characters", ErrInvalidOwner)
	}
	if len(owner) > 39 || !ownerPattern.MatchString(owner) {
		return fmt.Errorf("%w: must be alphanumeric with single hyphens (1-39 chars)", ErrInvalidOwner)
	}
	return nil
}

// ValidateRepo checks that repo is a single repository path segment.
func ValidateRepo(repo string) error {
	if repo == "" {
		return fmt.Errorf("%w: empty", ErrInvalidRepo)
	}
	if strings.Contains(repo, "..") {
		return fmt.Errorf("%w: %w", ErrInvalidRepo, ErrPathTraversal)
	}
	if repo == "." {
		return fmt.Errorf("%w: reserved name", ErrInvalidRepo)
	}
	if !repoPattern.MatchString(repo) {
		return fmt.Errorf("%w: must be alphanumeric, '.', '_' or '-' (1-100 chars)", ErrInvalidRepo)
	}
	return nil
}

// ValidateRepoRef validates an owner/repo pair.
func ValidateRepoRef(owner, repo string) error {
	if err := ValidateOwner(owner); err != nil {
		return err
	}
	return ValidateRepo(repo)
}

// ValidateIssueState accepts the issue list filters the upstream API knows.
// Empty means the upstream default.
func ValidateIssueState(state string) error {
	switch state {
	case "", "open", "closed", "all":
		return nil
	}
	return fmt.Errorf("%w: %q (want open, closed or all)", ErrInvalidState, state)
}

// ValidateBranch applies the git ref name rules that matter for a branch
// passed in a URL path. Slashes are allowed between components.
func ValidateBranch(branch string) error {
	switch {
	case branch == "":
		return fmt.Errorf("%w: empty", ErrInvalidBranch)
	case len(branch) > 255:
		return fmt.Errorf("%w: longer than 255 bytes", ErrInvalidBranch)
	case strings.Contains(branch, ".."):
		return fmt.Errorf("%w: %w", ErrInvalidBranch, ErrPathTraversal)
	case strings.HasPrefix(branch, "/"), strings.HasSuffix(branch, "/"), strings.Contains(branch, "//"):
		return fmt.Errorf("%w: empty path component", ErrInvalidBranch)
	case strings.HasSuffix(branch, "."), strings.HasSuffix(branch, ".lock"):
		return fmt.Errorf("%w: bad suffix", ErrInvalidBranch)
	case strings.Contains(branch, "@{"), branch == "@":
		return fmt.Errorf("%w: reflog syntax", ErrInvalidBranch)
	}
	for _, r := range branch {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(" ~^:?*[\\", r) {
			return fmt.Errorf("%w: character %q not allowed", ErrInvalidBranch, r)
		}
	}
	return nil
}
