package services

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRawMessageCarriesAttachment(t *testing.T) {
	content := []byte("%PDF-1.3 contenu du document")
	raw, err := buildRawMessage(
		"noreply@drivncook.fr",
		[]string{"admin1@test.local", "admin2@test.local"},
		"Commande transmise",
		"La commande CMD-2026-000007 a été transmise pour traitement.",
		[]EmailAttachment{{
			Filename:    "CMD-2026-000007.pdf",
			ContentType: "application/pdf",
			Data:        content,
		}},
	)
	require.NoError(t, err)

	msg := string(raw)
	assert.Contains(t, msg, "From: noreply@drivncook.fr")
	assert.Contains(t, msg, "To: admin1@test.local, admin2@test.local")
	assert.Contains(t, msg, "Subject: Commande transmise")
	assert.Contains(t, msg, "Content-Type: multipart/mixed; boundary=")
	assert.Contains(t, msg, `attachment; filename="CMD-2026-000007.pdf"`)
	assert.Contains(t, msg, "Content-Transfer-Encoding: base64")
	assert.Contains(t, msg, base64.StdEncoding.EncodeToString(content))
}

func TestBuildRawMessageDefaultsContentType(t *testing.T) {
	raw, err := buildRawMessage(
		"noreply@drivncook.fr",
		[]string{"admin@test.local"},
		"Document",
		"Voir pièce jointe.",
		[]EmailAttachment{{Filename: "notes.bin", Data: []byte{0x01, 0x02}}},
	)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Content-Type: application/octet-stream")
}
