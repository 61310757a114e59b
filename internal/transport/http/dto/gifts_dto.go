package dto

type GiftResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Emoji       string  `json:"emoji,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	IsUnique    bool    `json:"is_unique"`
}

type GiftsResponse struct {
	Gifts []GiftResponse `json:"gifts"`
}

type GiftImageUploadResponse struct {
	GiftID   string `json:"gift_id"`
	ImageURL string `json:"image_url"`
}
