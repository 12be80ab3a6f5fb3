package confirmation

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"iinfinder/internal/registry"
)

const (
	formID      = "indexForm"
	checkButton = "rcfield:0:checkPersonButton"

	captchaSelector   = "span#captchaImage img"
	viewStateSelector = `input[id="j_id1:javax.faces.ViewState:0"]`
	alertSelector     = `li[role="alert"]`
)

var (
	errMissingCaptcha   = errors.New("captcha image not found")
	errMissingViewState = errors.New("view state not found")
)

func parseChallenge(doc *goquery.Document) (challenge, error) {
	src, ok := doc.Find(captchaSelector).First().Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return challenge{}, registry.NewUpstreamError(registry.ErrorBadData, upstreamName, "challenge page", errMissingCaptcha)
	}
	viewState, ok := doc.Find(viewStateSelector).First().Attr("value")
	if !ok || viewState == "" {
		return challenge{}, registry.NewUpstreamError(registry.ErrorBadData, upstreamName, "challenge page", errMissingViewState)
	}
	return challenge{
		image:     strings.TrimPrefix(strings.TrimSpace(src), "data:image/png;base64,"),
		viewState: viewState,
	}, nil
}

type partialResponse struct {
	Updates []struct {
		ID      string `xml:"id,attr"`
		Content string `xml:",chardata"`
	} `xml:"changes>update"`
}

// extractUpdate returns the markup of the <update> element with the given id.
func extractUpdate(r io.Reader, id string) (string, error) {
	var pr partialResponse
	if err := xml.NewDecoder(r).Decode(&pr); err != nil {
		return "", fmt.Errorf("decode partial response: %w", err)
	}
	for _, u := range pr.Updates {
		if u.ID == id {
			return u.Content, nil
		}
	}
	return "", fmt.Errorf("update %q not present", id)
}

// parseResult reads the name spans out of the rendered form. An alert item
// means the registry has no such person.
func parseResult(fragment string) (registry.ConfirmationRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return registry.ConfirmationRecord{}, err
	}
	if doc.Find(alertSelector).Length() > 0 {
		return registry.ConfirmationRecord{}, nil
	}
	return registry.ConfirmationRecord{
		LastName:   spanText(doc, "span.lastname"),
		FirstName:  spanText(doc, "span.firstname"),
		MiddleName: spanText(doc, "span.middlename"),
	}, nil
}

func spanText(doc *goquery.Document, selector string) *string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return nil
	}
	return &text
}
