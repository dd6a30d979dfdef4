package gnews

// APIResponse represents the GNews API response structure.
type APIResponse struct {
	TotalArticles int          `json:"totalArticles"`
	Errors        []string     `json:"errors"`
	Articles      []APIArticle `json:"articles"`
}

type APIArticle struct {
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Content     *string   `json:"content"`
	URL         string    `json:"url"`
	Image       *string   `json:"image"`
	PublishedAt string    `json:"publishedAt"`
	Source      APISource `json:"source"`
}

type APISource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
