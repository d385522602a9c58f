// File: internal/sbom/sbom_test.go
package sbom

import (
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/pipewatch/api/schemas"
)

func fixedGenerator() *Generator {
	g := NewGenerator("pipewatch", "1.2.0")
	g.now = func() time.Time { return time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC) }
	g.newSerial = func() string { return "3e671687-395b-41f5-a30f-a58921a69b79" }
	return g
}

func sampleDeps() []schemas.DependencyRecord {
	return []schemas.DependencyRecord{
		{Name: "requests", Version: "2.25.0", PackageManager: "pip"},
		{Name: "lodash", Version: "4.17.20", PackageManager: "npm"},
		{Name: "golang.org/x/text", Version: "0.3.7", PackageManager: "go"},
	}
}

func TestCycloneDXJSON(t *testing.T) {
	t.Parallel()
	out, err := fixedGenerator().CycloneDXJSON(sampleDeps())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))

	assert.Equal(t, "CycloneDX", doc["bomFormat"])
	assert.Equal(t, "1.4", doc["specVersion"])
	assert.Equal(t, "urn:uuid:3e671687-395b-41f5-a30f-a58921a69b79", doc["serialNumber"])

	components, ok := doc["components"].([]any)
	require.True(t, ok)
	require.Len(t, components, 3)

	// Sorted by name regardless of input order.
	first := components[0].(map[string]any)
	assert.Equal(t, "golang.org/x/text", first["name"])
	assert.Equal(t, "pkg:golang/golang.org/x/text@0.3.7", first["purl"])

	second := components[1].(map[string]any)
	assert.Equal(t, "pkg:npm/lodash@4.17.20", second["purl"])
}

func TestCycloneDXXML(t *testing.T) {
	t.Parallel()
	out, err := fixedGenerator().CycloneDXXML(sampleDeps())
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))

	bom := doc.SelectElement("bom")
	require.NotNil(t, bom)
	assert.Equal(t, "http://cyclonedx.org/schema/bom/1.4", bom.SelectAttrValue("xmlns", ""))
	assert.True(t, strings.HasPrefix(bom.SelectAttrValue("serialNumber", ""), "urn:uuid:"))

	components := bom.SelectElement("components").SelectElements("component")
	require.Len(t, components, 3)
	assert.Equal(t, "golang.org/x/text", components[0].SelectElement("name").Text())
	assert.Equal(t, "pkg:pypi/requests@2.25.0", components[2].SelectElement("purl").Text())
}

func TestSPDXJSON(t *testing.T) {
	t.Parallel()
	out, err := fixedGenerator().SPDXJSON(sampleDeps())
	require.NoError(t, err)

	var doc spdxDocument
	require.NoError(t, json.Unmarshal(out, &doc))

	assert.Equal(t, "SPDX-2.3", doc.SPDXVersion)
	assert.Equal(t, "CC0-1.0", doc.DataLicense)
	assert.Equal(t, "SPDXRef-DOCUMENT", doc.SPDXID)
	require.Len(t, doc.Packages, 3)
	require.Len(t, doc.Relationships, 3)

	// Package ids are sanitized, carry the version, and every package is
	// described by the document.
	assert.Equal(t, "SPDXRef-Package-golang.org-x-text-0.3.7", doc.Packages[0].SPDXID)
	assert.Equal(t, "DESCRIBES", doc.Relationships[0].RelationshipType)
	assert.Equal(t, doc.Packages[0].SPDXID, doc.Relationships[0].RelatedSPDXElement)
	assert.Equal(t, "NOASSERTION", doc.Packages[0].DownloadLocation)
}

func TestSPDXPackageIDsDistinguishVersions(t *testing.T) {
	t.Parallel()
	deps := []schemas.DependencyRecord{
		{Name: "lodash", Version: "4.17.20", PackageManager: "npm"},
		{Name: "lodash", Version: "4.17.21", PackageManager: "npm"},
	}

	out, err := fixedGenerator().SPDXJSON(deps)
	require.NoError(t, err)

	var doc spdxDocument
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Len(t, doc.Packages, 2)
	assert.NotEqual(t, doc.Packages[0].SPDXID, doc.Packages[1].SPDXID,
		"the same package at two versions needs two distinct elements")
	assert.Equal(t, "SPDXRef-Package-lodash-4.17.20", doc.Packages[0].SPDXID)
	assert.Equal(t, "SPDXRef-Package-lodash-4.17.21", doc.Packages[1].SPDXID)

	// A dependency with no version still gets a stable identifier.
	assert.Equal(t, "SPDXRef-Package-left-pad",
		spdxPackageID(schemas.DependencyRecord{Name: "left-pad", PackageManager: "npm"}))
}

func TestSPDXYAML(t *testing.T) {
	t.Parallel()
	out, err := fixedGenerator().SPDXYAML(sampleDeps())
	require.NoError(t, err)

	var doc spdxDocument
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "SPDX-2.3", doc.SPDXVersion)
	require.Len(t, doc.Packages, 3)
	assert.Equal(t, "lodash", doc.Packages[1].Name)
	require.Len(t, doc.Packages[1].ExternalRefs, 1)
	assert.Equal(t, "pkg:npm/lodash@4.17.20", doc.Packages[1].ExternalRefs[0].ReferenceLocator)
}

func TestDeterministicOutput(t *testing.T) {
	t.Parallel()
	deps := sampleDeps()

	a, err := fixedGenerator().CycloneDXJSON(deps)
	require.NoError(t, err)
	b, err := fixedGenerator().CycloneDXJSON(deps)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	y1, err := fixedGenerator().SPDXYAML(deps)
	require.NoError(t, err)
	y2, err := fixedGenerator().SPDXYAML(deps)
	require.NoError(t, err)
	assert.Equal(t, string(y1), string(y2))
}

func TestPackageURLUnknownManager(t *testing.T) {
	t.Parallel()
	assert.Empty(t, packageURL(schemas.DependencyRecord{Name: "x", PackageManager: "conan"}))
	assert.Equal(t, "pkg:npm/left-pad", packageURL(schemas.DependencyRecord{Name: "left-pad", PackageManager: "npm"}))
}

func TestEmptyDependencyList(t *testing.T) {
	t.Parallel()
	out, err := fixedGenerator().CycloneDXJSON(nil)
	require.NoError(t, err)

	var doc cdxDocument
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.NotNil(t, doc.Components)
	assert.Empty(t, doc.Components)
}
