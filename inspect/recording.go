package inspect

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Recording summarises the recorded-steps XML embedded in an archive.
type Recording struct {
	StartTime string
	StopTime  string
	Actions   []Action
}

type Action struct {
	Number      string
	Time        string
	Description string
}

// ParseRecording reads the <xml> block returned by mht.ExtractRecordedXML.
// The report itself usually sits inside a CDATA section of that element.
func ParseRecording(block string) (*Recording, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(block); err != nil {
		return nil, fmt.Errorf("parse xml block: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("parse xml block: no root element")
	}

	if inner := strings.TrimSpace(root.Text()); strings.HasPrefix(inner, "<") {
		nested := etree.NewDocument()
		if err := nested.ReadFromString(inner); err != nil {
			return nil, fmt.Errorf("parse recorded report: %w", err)
		}
		doc = nested
	}

	rec := &Recording{}
	if session := doc.FindElement("//RecordSession"); session != nil {
		rec.StartTime = session.SelectAttrValue("StartTime", "")
		rec.StopTime = session.SelectAttrValue("StopTime", "")
	}

	for _, el := range doc.FindElements("//EachAction") {
		action := Action{
			Number: el.SelectAttrValue("ActionNumber", ""),
			Time:   el.SelectAttrValue("Time", ""),
		}
		if desc := el.FindElement("Description"); desc != nil {
			action.Description = strings.TrimSpace(desc.Text())
		}
		rec.Actions = append(rec.Actions, action)
	}

	return rec, nil
}
