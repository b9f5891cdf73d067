package opc

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
)

// CorePropertiesPath is the conventional archive-relative location of the
// OPC core-properties part.
const CorePropertiesPath = "docProps/core.xml"

// Namespace URIs bound on the core-properties root. Only the cp namespace
// carries managed elements; the rest are declared for prefix stability.
const (
	nsCoreProperties = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
	nsDublinCore     = "http://purl.org/dc/elements/1.1/"
	nsDCTerms        = "http://purl.org/dc/terms/"
	nsDCMIType       = "http://purl.org/dc/dcmitype/"
)

// xmlDeclaration is written as the document's processing instruction. Office
// emits core.xml with standalone="yes" and downstream diff tooling expects
// the declaration to keep that shape.
const xmlDeclaration = `version="1.0" encoding="UTF-8" standalone="yes"`

var errNoRootElement = errors.New("no root element")

// InfuseMetadata patches the core-properties part under scratchDir, setting
// the cp:version element text to releaseTag and the cp:keywords element text
// to commitHash. Both elements are created when absent; keywords is always
// re-appended as the last child of the root, so repeated invocations keep a
// single element in a deterministic position. Values are written verbatim —
// empty strings included; no semantic-versioning validation happens here.
//
// The rewritten part is serialized UTF-8 with an XML declaration including
// standalone="yes" and overwrites the file in place. No other file in the
// scratch tree is touched.
func InfuseMetadata(scratchDir, commitHash, releaseTag string) error {
	corePath := filepath.Join(scratchDir, filepath.FromSlash(CorePropertiesPath))

	raw, err := os.ReadFile(corePath)
	if err != nil {
		return &FilesystemError{Path: corePath, Err: err}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return &MalformedDocumentError{Path: corePath, Err: err}
	}

	root := doc.Root()
	if root == nil {
		return &MalformedDocumentError{Path: corePath, Err: errNoRootElement}
	}

	declareNamespaces(root)

	// etree exposes the local tag name in Tag and the prefix in Space, so
	// matching on Tag finds cp:version regardless of the declared prefix.
	version := childByTag(root, "version")
	if version == nil {
		version = root.CreateElement("cp:version")
	}

	version.SetText(releaseTag)

	keywords := childByTag(root, "keywords")
	if keywords != nil {
		root.RemoveChild(keywords)
	} else {
		keywords = etree.NewElement("cp:keywords")
	}

	keywords.SetText(commitHash)
	root.AddChild(keywords)

	out, err := serializeWithDeclaration(root)
	if err != nil {
		return &MalformedDocumentError{Path: corePath, Err: err}
	}

	if err := os.WriteFile(corePath, out, 0o644); err != nil {
		return &FilesystemError{Path: corePath, Err: err}
	}

	return nil
}

// declareNamespaces pins the standard core-properties prefixes on the root.
// Declarations are scoped to this document; nothing process-wide is mutated.
func declareNamespaces(root *etree.Element) {
	bindings := []struct {
		attr string
		uri  string
	}{
		{"xmlns:cp", nsCoreProperties},
		{"xmlns:dc", nsDublinCore},
		{"xmlns:dcterms", nsDCTerms},
		{"xmlns:dcmitype", nsDCMIType},
	}

	for _, b := range bindings {
		if root.SelectAttr(b.attr) == nil {
			root.CreateAttr(b.attr, b.uri)
		}
	}
}

// childByTag returns the first child element with the given local tag name.
func childByTag(parent *etree.Element, tag string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}

	return nil
}

// serializeWithDeclaration renders the root element into a fresh document
// whose first token is the canonical XML declaration. Building the
// declaration as a processing instruction keeps it under the serializer's
// control instead of patching the output text afterwards.
func serializeWithDeclaration(root *etree.Element) ([]byte, error) {
	out := etree.NewDocument()
	out.CreateProcInst("xml", xmlDeclaration)
	out.SetRoot(root.Copy())

	return out.WriteToBytes()
}
