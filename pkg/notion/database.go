package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// FindPageByURL returns the first page in dbID whose URL-typed property
// named prop equals url, or nil when none matches.
func FindPageByURL(ctx context.Context, c Client, dbID, prop, url string) (*notionapi.Page, error) {
	resp, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: prop,
			URL:      &notionapi.TextFilterCondition{Equals: url},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, eris.Wrap(err, "notion: find page by url")
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// UpsertByURL updates the page whose prop equals url, or creates one in dbID
// when none exists. It returns the page ID and whether a page was created.
func UpsertByURL(ctx context.Context, c Client, dbID, prop, url string, props notionapi.Properties) (string, bool, error) {
	existing, err := FindPageByURL(ctx, c, dbID, prop, url)
	if err != nil {
		return "", false, err
	}

	if existing != nil {
		page, err := c.UpdatePage(ctx, string(existing.ID), &notionapi.PageUpdateRequest{Properties: props})
		if err != nil {
			return "", false, eris.Wrap(err, "notion: upsert update")
		}
		return string(page.ID), false, nil
	}

	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	})
	if err != nil {
		return "", false, eris.Wrap(err, "notion: upsert create")
	}
	return string(page.ID), true, nil
}

// Title builds a title property.
func Title(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: richText(s),
	}
}

// Text builds a rich_text property. Notion caps a text object at 2000 chars.
func Text(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: richText(s),
	}
}

// URL builds a url property.
func URL(s string) notionapi.URLProperty {
	return notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: s}
}

// Number builds a number property.
func Number(f float64) notionapi.NumberProperty {
	return notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: f}
}

// Email builds an email property.
func Email(s string) notionapi.EmailProperty {
	return notionapi.EmailProperty{Type: notionapi.PropertyTypeEmail, Email: s}
}

// Select builds a select property.
func Select(name string) notionapi.SelectProperty {
	return notionapi.SelectProperty{
		Type:   notionapi.PropertyTypeSelect,
		Select: notionapi.Option{Name: name},
	}
}

// MultiSelect builds a multi_select property from names. Notion rejects
// commas inside option names, so they are replaced with semicolons.
func MultiSelect(names []string) notionapi.MultiSelectProperty {
	opts := make([]notionapi.Option, 0, len(names))
	for _, n := range names {
		opts = append(opts, notionapi.Option{Name: sanitizeOption(n)})
	}
	return notionapi.MultiSelectProperty{
		Type:        notionapi.PropertyTypeMultiSelect,
		MultiSelect: opts,
	}
}

// Date builds a date property.
func Date(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{
		Type: notionapi.PropertyTypeDate,
		Date: &notionapi.DateObject{Start: &d},
	}
}

const maxTextLen = 2000

func richText(s string) []notionapi.RichText {
	r := []rune(s)
	if len(r) > maxTextLen {
		s = string(r[:maxTextLen])
	}
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}

func sanitizeOption(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r == ',' {
			out[i] = ';'
		}
	}
	if len(out) > 100 {
		out = out[:100]
	}
	return string(out)
}
