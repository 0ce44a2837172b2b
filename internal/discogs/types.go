package discogs

type Identity struct {
	ID           uint64 `json:"id"`
	Username     string `json:"username"`
	ResourceURL  string `json:"resource_url"`
	ConsumerName string `json:"consumer_name"`
}

type Profile struct {
	ID         uint64 `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Profile    string `json:"profile"`
	AvatarURL  string `json:"avatar_url"`
	NumCollect int    `json:"num_collection"`
}

type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

type Artist struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type Format struct {
	Name         string   `json:"name"`
	Qty          string   `json:"qty"`
	Descriptions []string `json:"descriptions"`
}

type Label struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	CatNo string `json:"catno"`
}

type BasicInformation struct {
	ID         uint64   `json:"id"`
	Title      string   `json:"title"`
	Year       int      `json:"year"`
	Thumb      string   `json:"thumb"`
	CoverImage string   `json:"cover_image"`
	Artists    []Artist `json:"artists"`
	Formats    []Format `json:"formats"`
	Labels     []Label  `json:"labels"`
	Genres     []string `json:"genres"`
	Styles     []string `json:"styles"`
}

type CollectionRelease struct {
	ID               uint64           `json:"id"`
	InstanceID       uint64           `json:"instance_id"`
	DateAdded        string           `json:"date_added"`
	Rating           int              `json:"rating"`
	BasicInformation BasicInformation `json:"basic_information"`
}

type CollectionPage struct {
	Pagination Pagination          `json:"pagination"`
	Releases   []CollectionRelease `json:"releases"`
}
