package inspect

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordedXML = `<!-- This is the recorded XML data that was used in generating this page. -->` + "\r\n" +
	`<xml id="recordeddata"><![CDATA[<Report><UserActionData><RecordSession StartTime="09:00:00" StopTime="09:05:00">` +
	`<EachAction ActionNumber="1" Time="09:00:10"><Description>User left click on "Start"</Description></EachAction>` +
	`<EachAction ActionNumber="2" Time="09:01:00"><Description>User keyboard input in "Search"</Description></EachAction>` +
	`</RecordSession></UserActionData></Report>]]></xml>`

func encodeImage(t *testing.T, format string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	}

	enc := base64.StdEncoding.EncodeToString(buf.Bytes())
	var sb strings.Builder
	for len(enc) > 76 {
		sb.WriteString(enc[:76] + "\r\n")
		enc = enc[76:]
	}
	sb.WriteString(enc + "\r\n")
	return sb.String()
}

func buildArchive(t *testing.T, images ...string) string {
	t.Helper()
	const boundary = "--=_NextPart_SMP_01d7c0ffee_00000001"

	var sb strings.Builder
	sb.WriteString("MIME-Version: 1.0\r\nContent-Type: multipart/related; boundary=\"=_NextPart_SMP_01d7c0ffee_00000001\"\r\n\r\n")
	sb.WriteString(boundary + "\r\nContent-Type: text/html; charset=\"UTF-8\"\r\nContent-Location: main.htm\r\n\r\n")
	sb.WriteString("<!DOCTYPE html>\r\n<html><head><title>Steps</title>")
	sb.WriteString(`<link rel="stylesheet" type="text/css" href="main.css">`)
	sb.WriteString("</head><body>\r\n")
	for i := range images {
		sb.WriteString(`<img src="screenshot000` + string(rune('1'+i)) + `.JPEG">` + "\r\n")
	}
	sb.WriteString(recordedXML + "\r\n</body></html>\r\n")
	sb.WriteString(boundary + "\r\nContent-Type: text/css\r\nContent-Location: main.css\r\n\r\n")
	sb.WriteString("body { margin: 0; }\r\n.Step { padding: 4px; }\r\nimg { max-width: 100%; }\r\n")
	for i, payload := range images {
		sb.WriteString(boundary + "\r\nContent-Type: image/jpeg\r\nContent-Transfer-Encoding: base64\r\n")
		sb.WriteString("Content-Location: screenshot000" + string(rune('1'+i)) + ".JPEG\r\n\r\n")
		sb.WriteString(payload)
	}
	sb.WriteString(boundary + "--\r\n")
	return sb.String()
}

func TestInspect(t *testing.T) {
	raw := buildArchive(t, encodeImage(t, "jpeg", 8, 4), encodeImage(t, "jpeg", 2, 2))

	report, err := Inspect("steps.mht", []byte(raw))
	require.NoError(t, err)
	require.NoError(t, report.ConvertErr)

	require.Len(t, report.Parts, 4)
	assert.Equal(t, "main.htm", report.Parts[0].Location)
	assert.Equal(t, "text/css", report.Parts[1].ContentType)
	assert.Equal(t, "screenshot0001.JPEG", report.Parts[2].Location)
	assert.Equal(t, "base64", report.Parts[2].Encoding)
	assert.Equal(t, "jpeg", report.Parts[2].Format)
	assert.Equal(t, 8, report.Parts[2].Width)
	assert.Equal(t, 4, report.Parts[2].Height)
	assert.Equal(t, 2, report.Parts[3].Width)

	require.NotNil(t, report.Recording)
	assert.Equal(t, "09:00:00", report.Recording.StartTime)
	assert.Equal(t, "09:05:00", report.Recording.StopTime)
	require.Len(t, report.Recording.Actions, 2)
	assert.Equal(t, Action{Number: "2", Time: "09:01:00", Description: `User keyboard input in "Search"`}, report.Recording.Actions[1])

	require.NotNil(t, report.Output)
	assert.Equal(t, "steps_cleaned.html", report.Output.FileName)
	assert.Equal(t, "Steps", report.Output.Title)
	assert.Equal(t, 2, report.Output.Images)
	assert.Equal(t, 2, report.Output.DataImages)
	assert.Zero(t, report.Output.UnresolvedImages)
	assert.Equal(t, 1, report.Output.StyleBlocks)
	assert.Zero(t, report.Output.StylesheetLinks)
	assert.Equal(t, 3, report.Output.CSSRules)

	assert.Empty(t, report.Issues())
}

func TestInspect_MislabelledAndUnpaired(t *testing.T) {
	raw := buildArchive(t, encodeImage(t, "png", 3, 3))
	raw = strings.Replace(raw, "<body>\r\n", "<body>\r\n"+`<img src="extra.JPEG">`, 1)

	report, err := Inspect("steps.mht", []byte(raw))
	require.NoError(t, err)
	require.NotNil(t, report.Output)

	assert.True(t, report.Parts[2].Mislabelled())
	assert.Equal(t, 1, report.Output.UnresolvedImages)

	issues := report.Issues()
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0], "is png, not jpeg")
	assert.Contains(t, issues[1], "still reference a .JPEG file")
}

func TestInspect_ConversionFailure(t *testing.T) {
	raw := "MIME-Version: 1.0\r\n\r\n--=_NextPart_SMP_1\r\nContent-Location: main.htm\r\n\r\n<html></html>\r\n--=_NextPart_SMP_1--\r\n"

	report, err := Inspect("broken.mht", []byte(raw))
	require.NoError(t, err)
	require.Error(t, report.ConvertErr)
	assert.Nil(t, report.Output)
	assert.Len(t, report.Parts, 1)
	assert.Len(t, report.Issues(), 1)
}

func TestParseRecording_PlainXML(t *testing.T) {
	rec, err := ParseRecording(`<xml><Report><RecordSession StartTime="1"><EachAction ActionNumber="1"/></RecordSession></Report></xml>`)
	require.NoError(t, err)
	assert.Equal(t, "1", rec.StartTime)
	assert.Len(t, rec.Actions, 1)
}

func TestParseRecording_Invalid(t *testing.T) {
	_, err := ParseRecording(`<xml><![CDATA[<Report a=></Report>]]></xml>`)
	assert.Error(t, err)
}
