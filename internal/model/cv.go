package model

// CVData is the structured CV accepted by the CV ingestion endpoint and CLI.
type CVData struct {
	PersonalInfo PersonalInfo `json:"personalInfo" yaml:"personal_info"`
	Experiences  []Experience `json:"experiences,omitempty" yaml:"experiences,omitempty"`
	Education    []Education  `json:"education,omitempty" yaml:"education,omitempty"`
	Skills       []Skill      `json:"skills,omitempty" yaml:"skills,omitempty"`
	Projects     []Project    `json:"projects,omitempty" yaml:"projects,omitempty"`
}

type PersonalInfo struct {
	Name     string `json:"name" yaml:"name"`
	Title    string `json:"title" yaml:"title"`
	Location string `json:"location" yaml:"location"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Website  string `json:"website,omitempty" yaml:"website,omitempty"`
	LinkedIn string `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty" yaml:"github,omitempty"`
	Summary  string `json:"summary" yaml:"summary"`
}

type Experience struct {
	Title        string   `json:"title" yaml:"title"`
	Company      string   `json:"company" yaml:"company"`
	StartDate    string   `json:"start_date" yaml:"start_date"`
	EndDate      string   `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Location     string   `json:"location,omitempty" yaml:"location,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Highlights   []string `json:"highlights,omitempty" yaml:"highlights,omitempty"`
	Technologies []string `json:"technologies,omitempty" yaml:"technologies,omitempty"`
}

type Education struct {
	Degree      string `json:"degree" yaml:"degree"`
	Field       string `json:"field" yaml:"field"`
	Institution string `json:"institution" yaml:"institution"`
	StartDate   string `json:"start_date" yaml:"start_date"`
	EndDate     string `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Location    string `json:"location,omitempty" yaml:"location,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type Skill struct {
	Name            string `json:"name" yaml:"name"`
	Category        string `json:"category" yaml:"category"`
	Proficiency     int    `json:"proficiency" yaml:"proficiency"`
	YearsExperience int    `json:"years_experience,omitempty" yaml:"years_experience,omitempty"`
}

type Project struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	URL          string   `json:"url,omitempty" yaml:"url,omitempty"`
	Repository   string   `json:"repository,omitempty" yaml:"repository,omitempty"`
	Technologies []string `json:"technologies,omitempty" yaml:"technologies,omitempty"`
	Highlights   []string `json:"highlights,omitempty" yaml:"highlights,omitempty"`
}
