// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Id identifies an issue in the catalog.
type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	InvalidCoordinateId
	FetchFailedId
	IntegrityFailedId
	RelocationFailedId
	LoadFailedId
	EntryInvocationFailedId
	EnvironmentFailedId
)

type (
	// MarkdownMsg is the Markdown body of an issue.
	MarkdownMsg string

	// HttpLink is a documentation link rendered under "See also".
	HttpLink string

	// Issue is a catalog entry with remediation guidance.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Markdown returns the message followed by a "See also" list of links.
func (i *Issue) Markdown() string {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return sb.String()
}

// Render renders the issue for the terminal with the given glamour style
// ("dark", "light", "notty", or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The boot configuration could not be read or does not match the schema.

## Things you can try:
- Show the effective configuration:
~~~
$ modboot config show
~~~

- Write a default file to start from:
~~~
$ modboot config init
~~~

- Check that runtime versions are semantic versions ("1.8.22")
- Check that relocation rules use the "from=to" form`,
	}

	invalidCoordinateIssue = &Issue{
		id: InvalidCoordinateId,
		mdMsg: `
# Invalid module coordinate!

Module coordinates use the form ` + "`group:name:version`" + `. No segment may
be empty, contain whitespace, or contain path separators.

## Example:
~~~cue
modules: ["org.example:demo:1.0"]
~~~`,
	}

	fetchFailedIssue = &Issue{
		id: FetchFailedId,
		mdMsg: `
# Could not download a module!

The repository did not serve the artifact or its checksum.

## Things you can try:
- Check that the repository URL in your configuration is reachable
- Verify the module version exists in the repository
- For s3:// repositories, check your AWS credentials and region
- Retry: partially downloaded files are never left in the library directory`,
	}

	integrityFailedIssue = &Issue{
		id: IntegrityFailedId,
		mdMsg: `
# Checksum mismatch!

A downloaded artifact does not match its published SHA-1 sidecar, even after a
fresh download. Both files were removed.

## Things you can try:
- Retry later: the repository may be serving a partially published release
- Compare the artifact with the sidecar published by the repository
- Point the repository setting at a trusted mirror`,
	}

	relocationFailedIssue = &Issue{
		id: RelocationFailedId,
		mdMsg: `
# Relocation failed!

A module archive could not be rewritten with the configured relocation rules.

## Things you can try:
- Check for rules that map two different names onto the same target
- Remove the relocated copy from the cache directory and retry:
~~~
$ modboot relocate --force <artifact>
~~~`,
	}

	loadFailedIssue = &Issue{
		id: LoadFailedId,
		mdMsg: `
# Module could not be registered!

The artifact exists but could not be opened as a module archive.

## Things you can try:
- Delete the artifact from the library directory so it is downloaded again
- Check the file is a zip archive`,
	}

	entryInvocationFailedIssue = &Issue{
		id: EntryInvocationFailedId,
		mdMsg: `
# A module entry hook failed!

A unit listed in the module manifest (` + "`META-INF/modboot/extra.properties`" + `)
could not be activated.

## Common causes:
- The unit is not part of the module after relocation
- No activatable is registered for the unit and method
- The entry returned an error

## Things you can try:
- Inspect the module to see its units and manifest:
~~~
$ modboot inspect <artifact>
~~~`,
	}

	environmentFailedIssue = &Issue{
		id: EnvironmentFailedId,
		mdMsg: `
# Failed to set up the runtime environment!

The companion runtime loaded without error, but its probe unit cannot be
resolved from the active isolation boundary.

## Things you can try:
- Check runtime.namespace and runtime.version in your configuration
- Disable runtime relocation while debugging:
~~~cue
dev: {enabled: true, skip_runtime_relocate: true}
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		invalidCoordinateIssue.Id():     invalidCoordinateIssue,
		fetchFailedIssue.Id():           fetchFailedIssue,
		integrityFailedIssue.Id():       integrityFailedIssue,
		relocationFailedIssue.Id():      relocationFailedIssue,
		loadFailedIssue.Id():            loadFailedIssue,
		entryInvocationFailedIssue.Id(): entryInvocationFailedIssue,
		environmentFailedIssue.Id():     environmentFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int { return int(a.id) - int(b.id) })
}

// Get returns the issue with the given Id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
