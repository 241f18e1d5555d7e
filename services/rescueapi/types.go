package rescueapi

// OrganizationSummary is the organization block embedded in an animal
type OrganizationSummary struct {
	ID      int    `json:"id"`
	Slug    string `json:"slug"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

// Animal is one adoptable dog as returned by /api/animals
type Animal struct {
	ID                int                    `json:"id"`
	Slug              string                 `json:"slug"`
	Name              string                 `json:"name"`
	AnimalType        string                 `json:"animal_type,omitempty"`
	Breed             string                 `json:"breed,omitempty"`
	StandardizedBreed string                 `json:"standardized_breed,omitempty"`
	BreedGroup        string                 `json:"breed_group,omitempty"`
	Sex               string                 `json:"sex,omitempty"`
	Size              string                 `json:"size,omitempty"`
	StandardizedSize  string                 `json:"standardized_size,omitempty"`
	AgeText           string                 `json:"age_text,omitempty"`
	AgeCategory       string                 `json:"age_category,omitempty"`
	PrimaryImageURL   string                 `json:"primary_image_url,omitempty"`
	AdoptionURL       string                 `json:"adoption_url,omitempty"`
	Status            string                 `json:"status,omitempty"`
	OrganizationID    int                    `json:"organization_id,omitempty"`
	Organization      *OrganizationSummary   `json:"organization,omitempty"`
	Properties        map[string]interface{} `json:"properties,omitempty"`
	CreatedAt         string                 `json:"created_at,omitempty"`
}

// Organization is a rescue organization as returned by /api/organizations
type Organization struct {
	ID              int               `json:"id"`
	Slug            string            `json:"slug"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Country         string            `json:"country,omitempty"`
	City            string            `json:"city,omitempty"`
	WebsiteURL      string            `json:"website_url,omitempty"`
	LogoURL         string            `json:"logo_url,omitempty"`
	ServiceRegions  []string          `json:"service_regions,omitempty"`
	ShipsTo         []string          `json:"ships_to,omitempty"`
	TotalDogs       int               `json:"total_dogs"`
	NewThisWeek     int               `json:"new_this_week,omitempty"`
	EstablishedYear int               `json:"established_year,omitempty"`
	SocialMedia     map[string]string `json:"social_media,omitempty"`
}

// CountryCount is one row of the per-country breakdown
type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// OrganizationCount is one row of the per-organization breakdown
type OrganizationCount struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Statistics is the aggregate view from /api/animals/statistics
type Statistics struct {
	TotalDogs          int                 `json:"total_dogs"`
	TotalOrganizations int                 `json:"total_organizations"`
	Countries          []CountryCount      `json:"countries"`
	Organizations      []OrganizationCount `json:"organizations"`
}

// AnimalQuery is the list request: derived filter params plus paging.
// It doubles as the cache key argument, so it must stay JSON-serializable.
type AnimalQuery struct {
	Params map[string]string `json:"params"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}
