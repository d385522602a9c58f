// Package sbom renders dependency inventories as standard software bills of
// materials in CycloneDX 1.4 and SPDX 2.3 documents.
package sbom

import (
	"fmt"
	"sort"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/pipewatch/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const cycloneDXNamespace = "http://cyclonedx.org/schema/bom/1.4"

// Generator produces SBOM documents for one project.
type Generator struct {
	projectName    string
	projectVersion string

	// injectable for deterministic output in tests
	now       func() time.Time
	newSerial func() string
}

func NewGenerator(projectName, projectVersion string) *Generator {
	return &Generator{
		projectName:    projectName,
		projectVersion: projectVersion,
		now:            time.Now,
		newSerial:      uuid.NewString,
	}
}

// component is the CycloneDX JSON component shape.
type cdxComponent struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Version string `json:"version"`
	PURL    string `json:"purl,omitempty"`
}

type cdxDocument struct {
	BOMFormat    string `json:"bomFormat"`
	SpecVersion  string `json:"specVersion"`
	SerialNumber string `json:"serialNumber"`
	Version      int    `json:"version"`
	Metadata     struct {
		Timestamp string       `json:"timestamp"`
		Component cdxComponent `json:"component"`
	} `json:"metadata"`
	Components []cdxComponent `json:"components"`
}

// CycloneDXJSON renders the dependencies as a CycloneDX 1.4 JSON document.
func (g *Generator) CycloneDXJSON(deps []schemas.DependencyRecord) ([]byte, error) {
	doc := cdxDocument{
		BOMFormat:    "CycloneDX",
		SpecVersion:  "1.4",
		SerialNumber: "urn:uuid:" + g.newSerial(),
		Version:      1,
		Components:   make([]cdxComponent, 0, len(deps)),
	}
	doc.Metadata.Timestamp = g.now().UTC().Format(time.RFC3339)
	doc.Metadata.Component = cdxComponent{
		Type:    "application",
		Name:    g.projectName,
		Version: g.projectVersion,
	}

	for _, dep := range sortedDeps(deps) {
		doc.Components = append(doc.Components, cdxComponent{
			Type:    "library",
			Name:    dep.Name,
			Version: dep.Version,
			PURL:    packageURL(dep),
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// CycloneDXXML renders the same document as CycloneDX 1.4 XML.
func (g *Generator) CycloneDXXML(deps []schemas.DependencyRecord) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	bom := doc.CreateElement("bom")
	bom.CreateAttr("xmlns", cycloneDXNamespace)
	bom.CreateAttr("serialNumber", "urn:uuid:"+g.newSerial())
	bom.CreateAttr("version", "1")

	metadata := bom.CreateElement("metadata")
	metadata.CreateElement("timestamp").SetText(g.now().UTC().Format(time.RFC3339))
	root := metadata.CreateElement("component")
	root.CreateAttr("type", "application")
	root.CreateElement("name").SetText(g.projectName)
	root.CreateElement("version").SetText(g.projectVersion)

	components := bom.CreateElement("components")
	for _, dep := range sortedDeps(deps) {
		c := components.CreateElement("component")
		c.CreateAttr("type", "library")
		c.CreateElement("name").SetText(dep.Name)
		c.CreateElement("version").SetText(dep.Version)
		if purl := packageURL(dep); purl != "" {
			c.CreateElement("purl").SetText(purl)
		}
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

// packageURL builds the purl for a dependency from its package manager.
func packageURL(dep schemas.DependencyRecord) string {
	purlType, ok := purlTypes[dep.PackageManager]
	if !ok {
		return ""
	}
	if dep.Version == "" {
		return fmt.Sprintf("pkg:%s/%s", purlType, dep.Name)
	}
	return fmt.Sprintf("pkg:%s/%s@%s", purlType, dep.Name, dep.Version)
}

var purlTypes = map[string]string{
	"npm":   "npm",
	"pip":   "pypi",
	"pypi":  "pypi",
	"go":    "golang",
	"cargo": "cargo",
	"maven": "maven",
}

// sortedDeps copies and orders dependencies so documents are deterministic
// for identical input.
func sortedDeps(deps []schemas.DependencyRecord) []schemas.DependencyRecord {
	out := make([]schemas.DependencyRecord, len(deps))
	copy(out, deps)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}
