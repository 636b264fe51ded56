package opinion

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexFloat unmarshals from a JSON number or a numeric string; the Opinion
// API sends volume fields either way depending on the endpoint version.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(n)
	return nil
}

// APITopicResponse is the envelope of the Opinion topic endpoint. A non-empty
// Error means the upstream rejected the request even though the gateway
// returned 200.
type APITopicResponse struct {
	Error  string    `json:"error"`
	Result APIResult `json:"result"`
}

// APIResult holds the paged topic list.
type APIResult struct {
	List []APITopic `json:"list"`
}

// APITopic is one Opinion market topic. Multi-outcome topics carry their
// options in ChildList; binary topics quote yes/no prices directly.
type APITopic struct {
	TopicID      json.Number `json:"topicId"`
	Title        string      `json:"title"`
	TitleShort   string      `json:"titleShort"`
	Abstract     string      `json:"abstract"`
	Content      string      `json:"content"`
	ThumbnailURL string      `json:"thumbnailUrl"`
	LabelName    []string    `json:"labelName"`
	Volume       flexFloat   `json:"volume"`
	Volume24h    flexFloat   `json:"volume24h"`
	CutoffTime   int64       `json:"cutoffTime"`
	ChainID      int64       `json:"chainId"`
	TopicType    int         `json:"topicType"`
	YesBuyPrice  string      `json:"yesBuyPrice"`
	NoBuyPrice   string      `json:"noBuyPrice"`
	ChildList    []APIChild  `json:"childList"`
}

// APIChild is one option of a multi-outcome topic.
type APIChild struct {
	Title       string `json:"title"`
	YesLabel    string `json:"yesLabel"`
	NoLabel     string `json:"noLabel"`
	YesBuyPrice string `json:"yesBuyPrice"`
	NoBuyPrice  string `json:"noBuyPrice"`
	YesPos      string `json:"yesPos"`
	NoPos       string `json:"noPos"`
}

// yesPrice derives the implied yes probability from a yes/no buy-price pair.
// A missing yes quote is reconstructed from the no side; with neither quote
// the fallback applies.
func yesPrice(yesBuy, noBuy string, fallback float64) float64 {
	yes, _ := strconv.ParseFloat(yesBuy, 64)
	if yes > 0 {
		return yes
	}
	no, _ := strconv.ParseFloat(noBuy, 64)
	if no > 0 {
		return 1 - no
	}
	return fallback
}
