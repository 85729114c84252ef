package commonModels

import (
	"path"
	"strings"
)

// Document statuses owned by the system of record.
const (
	StatusUploaded  = "uploaded"
	StatusIngesting = "ingesting"
	StatusReady     = "ready"
	StatusError     = "error"
)

// Document is the last known snapshot of a document record.
type Document struct {
	Id          string `json:"id"`
	KnowledgeId string `json:"knowledge_id"`
	FileName    string `json:"filename"`
	Locator     string `json:"s3_key"`
	Status      string `json:"status"`
}

func (d Document) ContentType() DocType {
	return DocTypeFromName(d.FileName)
}

type DocChunk struct {
	DocId      string `json:"doc_id"`
	ChunkIndex int    `json:"chunk_index"`
	Chunk      string `json:"content"`
	TokenCount int    `json:"token_count"`
	Section    string `json:"section,omitempty"`
}

// Payload is stored next to every vector point.
type Payload struct {
	DocId       string `json:"doc_id"`
	ChunkIndex  int    `json:"chunk_index"`
	FileName    string `json:"file_name"`
	Text        string `json:"text"`
	KnowledgeId string `json:"knowledge_id,omitempty"`
	Section     string `json:"section,omitempty"`
	TokenCount  int    `json:"token_count,omitempty"`
}

type IndexPoint struct {
	Id      string
	Vector  []float32
	Payload Payload
}

type SearchHit struct {
	ChunkId     string  `json:"chunk_id"`
	Score       float32 `json:"score"`
	DocId       string  `json:"doc_id"`
	ChunkIndex  int     `json:"chunk_index"`
	FileName    string  `json:"file_name"`
	Text        string  `json:"text"`
	KnowledgeId string  `json:"knowledge_id,omitempty"`
	Section     string  `json:"section,omitempty"`
}

// StatusUpdate is the terminal status pushed once per ingestion run.
type StatusUpdate struct {
	DocumentId string `json:"-"`
	Status     string `json:"status"`
	ChunkCount *int   `json:"chunk_count,omitempty"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var ODT DocType = "ODT"
var RTF DocType = "RTF"
var HTML DocType = "HTML"
var MD DocType = "MD"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"

func DocTypeFromName(name string) DocType {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return PDF
	case ".docx":
		return DOCX
	case ".odt":
		return ODT
	case ".rtf":
		return RTF
	case ".html", ".htm":
		return HTML
	case ".md", ".markdown":
		return MD
	case ".txt", ".text", ".csv", ".log":
		return TXT
	}
	return ERR
}
