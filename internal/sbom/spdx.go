// File: internal/sbom/spdx.go
package sbom

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/pipewatch/api/schemas"
)

// spdxDocument is the SPDX 2.3 document shape shared by the JSON and YAML
// renderers.
type spdxDocument struct {
	SPDXVersion       string `json:"spdxVersion" yaml:"spdxVersion"`
	DataLicense       string `json:"dataLicense" yaml:"dataLicense"`
	SPDXID            string `json:"SPDXID" yaml:"SPDXID"`
	Name              string `json:"name" yaml:"name"`
	DocumentNamespace string `json:"documentNamespace" yaml:"documentNamespace"`
	CreationInfo      struct {
		Created  string   `json:"created" yaml:"created"`
		Creators []string `json:"creators" yaml:"creators"`
	} `json:"creationInfo" yaml:"creationInfo"`
	Packages      []spdxPackage      `json:"packages" yaml:"packages"`
	Relationships []spdxRelationship `json:"relationships" yaml:"relationships"`
}

type spdxPackage struct {
	SPDXID           string            `json:"SPDXID" yaml:"SPDXID"`
	Name             string            `json:"name" yaml:"name"`
	VersionInfo      string            `json:"versionInfo,omitempty" yaml:"versionInfo,omitempty"`
	DownloadLocation string            `json:"downloadLocation" yaml:"downloadLocation"`
	FilesAnalyzed    bool              `json:"filesAnalyzed" yaml:"filesAnalyzed"`
	ExternalRefs     []spdxExternalRef `json:"externalRefs,omitempty" yaml:"externalRefs,omitempty"`
}

type spdxExternalRef struct {
	ReferenceCategory string `json:"referenceCategory" yaml:"referenceCategory"`
	ReferenceType     string `json:"referenceType" yaml:"referenceType"`
	ReferenceLocator  string `json:"referenceLocator" yaml:"referenceLocator"`
}

type spdxRelationship struct {
	SPDXElementID      string `json:"spdxElementId" yaml:"spdxElementId"`
	RelationshipType   string `json:"relationshipType" yaml:"relationshipType"`
	RelatedSPDXElement string `json:"relatedSpdxElement" yaml:"relatedSpdxElement"`
}

// spdxIDSanitizer strips characters SPDX identifiers forbid.
var spdxIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9.-]+`)

// spdxPackageID derives the element identifier for a dependency. The version
// participates so the same package appearing at two versions yields two
// distinct elements.
func spdxPackageID(dep schemas.DependencyRecord) string {
	id := "SPDXRef-Package-" + spdxIDSanitizer.ReplaceAllString(dep.Name, "-")
	if dep.Version != "" {
		id += "-" + spdxIDSanitizer.ReplaceAllString(dep.Version, "-")
	}
	return id
}

func (g *Generator) spdxDocument(deps []schemas.DependencyRecord) spdxDocument {
	doc := spdxDocument{
		SPDXVersion:       "SPDX-2.3",
		DataLicense:       "CC0-1.0",
		SPDXID:            "SPDXRef-DOCUMENT",
		Name:              g.projectName,
		DocumentNamespace: fmt.Sprintf("https://spdx.org/spdxdocs/%s-%s", spdxIDSanitizer.ReplaceAllString(g.projectName, "-"), g.newSerial()),
	}
	doc.CreationInfo.Created = g.now().UTC().Format(time.RFC3339)
	doc.CreationInfo.Creators = []string{"Tool: pipewatch"}

	for _, dep := range sortedDeps(deps) {
		id := spdxPackageID(dep)
		pkg := spdxPackage{
			SPDXID:           id,
			Name:             dep.Name,
			VersionInfo:      dep.Version,
			DownloadLocation: "NOASSERTION",
		}
		if purl := packageURL(dep); purl != "" {
			pkg.ExternalRefs = []spdxExternalRef{{
				ReferenceCategory: "PACKAGE-MANAGER",
				ReferenceType:     "purl",
				ReferenceLocator:  purl,
			}}
		}
		doc.Packages = append(doc.Packages, pkg)
		doc.Relationships = append(doc.Relationships, spdxRelationship{
			SPDXElementID:      "SPDXRef-DOCUMENT",
			RelationshipType:   "DESCRIBES",
			RelatedSPDXElement: id,
		})
	}
	return doc
}

// SPDXJSON renders the dependencies as an SPDX 2.3 JSON document.
func (g *Generator) SPDXJSON(deps []schemas.DependencyRecord) ([]byte, error) {
	return json.MarshalIndent(g.spdxDocument(deps), "", "  ")
}

// SPDXYAML renders the dependencies as an SPDX 2.3 YAML document.
func (g *Generator) SPDXYAML(deps []schemas.DependencyRecord) ([]byte, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(g.spdxDocument(deps)); err != nil {
		return nil, fmt.Errorf("failed to encode SPDX YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}
