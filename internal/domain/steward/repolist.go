package steward

// RepoListSource is the content of repos.md. Exactly one of ExplicitFile,
// SingleRepo or EmptyRepoList is active per run.
type RepoListSource interface {
	// Bytes returns the serialized repos.md content.
	Bytes() []byte

	isRepoListSource()
}

// ExplicitFile is a repository list supplied as a file by the user.
type ExplicitFile []byte

// SingleRepo is the repository the workflow runs in, as owner/repo.
type SingleRepo string

// EmptyRepoList leaves discovery to the GitHub App installation.
type EmptyRepoList struct{}

// Bytes returns the file content verbatim.
func (f ExplicitFile) Bytes() []byte { return []byte(f) }

// Bytes returns the repository name.
func (r SingleRepo) Bytes() []byte { return []byte(r) }

// Bytes returns an empty slice.
func (EmptyRepoList) Bytes() []byte { return []byte{} }

func (ExplicitFile) isRepoListSource()  {}
func (SingleRepo) isRepoListSource()    {}
func (EmptyRepoList) isRepoListSource() {}

// ResolveRepoList picks the repository list. A supplied file always wins;
// otherwise app mode yields an empty list and the current repository is
// used last.
func ResolveRepoList(reposFile []byte, app *GitHubAppInfo, repository string) RepoListSource {
	switch {
	case reposFile != nil:
		return ExplicitFile(reposFile)
	case app != nil:
		return EmptyRepoList{}
	default:
		return SingleRepo(repository)
	}
}

// DescribeRepoList returns a short log-friendly label for the variant.
func DescribeRepoList(src RepoListSource) string {
	switch v := src.(type) {
	case ExplicitFile:
		return "repos file"
	case SingleRepo:
		return "repository " + string(v)
	case EmptyRepoList:
		return "github app installation"
	default:
		return "unknown"
	}
}
