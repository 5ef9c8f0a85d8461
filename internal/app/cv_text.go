package app

import (
	"fmt"
	"strings"
	"time"

	"portfolio-rag/internal/model"
)

// FormatCV renders a CV as markdown-like text suited for chunking.
func FormatCV(cv model.CVData) string {
	var b strings.Builder
	p := cv.PersonalInfo

	fmt.Fprintf(&b, "# %s - CV\n\n", p.Name)
	b.WriteString("## Personal Information\n")
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	fmt.Fprintf(&b, "Location: %s\n", p.Location)
	writeOptional(&b, "Email", p.Email)
	writeOptional(&b, "Website", p.Website)
	writeOptional(&b, "LinkedIn", p.LinkedIn)
	writeOptional(&b, "GitHub", p.GitHub)
	fmt.Fprintf(&b, "\nSummary: %s\n\n", p.Summary)

	if len(cv.Experiences) > 0 {
		b.WriteString("## Work Experience\n\n")
		for _, exp := range cv.Experiences {
			fmt.Fprintf(&b, "### %s at %s\n", exp.Title, exp.Company)
			fmt.Fprintf(&b, "Duration: %s - %s\n", formatCVDate(exp.StartDate), formatCVEnd(exp.EndDate))
			writeOptional(&b, "Location", exp.Location)
			b.WriteString("\n")
			if exp.Description != "" {
				b.WriteString(exp.Description + "\n\n")
			}
			writeList(&b, "Key Achievements", exp.Highlights)
			if len(exp.Technologies) > 0 {
				fmt.Fprintf(&b, "Technologies: %s\n\n", strings.Join(exp.Technologies, ", "))
			}
		}
	}

	if len(cv.Education) > 0 {
		b.WriteString("## Education\n\n")
		for _, edu := range cv.Education {
			fmt.Fprintf(&b, "### %s in %s\n", edu.Degree, edu.Field)
			fmt.Fprintf(&b, "Institution: %s\n", edu.Institution)
			fmt.Fprintf(&b, "Duration: %s - %s\n", formatCVDate(edu.StartDate), formatCVEnd(edu.EndDate))
			writeOptional(&b, "Location", edu.Location)
			b.WriteString("\n")
			if edu.Description != "" {
				b.WriteString(edu.Description + "\n\n")
			}
		}
	}

	if len(cv.Skills) > 0 {
		b.WriteString("## Skills\n\n")
		var categories []string
		byCategory := map[string][]model.Skill{}
		for _, sk := range cv.Skills {
			if _, ok := byCategory[sk.Category]; !ok {
				categories = append(categories, sk.Category)
			}
			byCategory[sk.Category] = append(byCategory[sk.Category], sk)
		}
		for _, cat := range categories {
			fmt.Fprintf(&b, "### %s\n", cat)
			for _, sk := range byCategory[cat] {
				fmt.Fprintf(&b, "- %s (%d/5", sk.Name, sk.Proficiency)
				if sk.YearsExperience > 0 {
					fmt.Fprintf(&b, ", %d years", sk.YearsExperience)
				}
				b.WriteString(")\n")
			}
			b.WriteString("\n")
		}
	}

	if len(cv.Projects) > 0 {
		b.WriteString("## Projects\n\n")
		for _, pr := range cv.Projects {
			fmt.Fprintf(&b, "### %s\n\n", pr.Name)
			if pr.Description != "" {
				b.WriteString(pr.Description + "\n\n")
			}
			writeOptional(&b, "URL", pr.URL)
			writeOptional(&b, "Repository", pr.Repository)
			if len(pr.Technologies) > 0 {
				fmt.Fprintf(&b, "Technologies: %s\n\n", strings.Join(pr.Technologies, ", "))
			}
			writeList(&b, "Key Features", pr.Highlights)
		}
	}

	return b.String()
}

func writeOptional(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(label + ":\n")
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

var cvDateLayouts = []string{"2006-01-02", "2006-01", time.RFC3339}

// formatCVDate renders ISO-ish dates as "January 2006" and leaves anything
// else untouched.
func formatCVDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "N/A"
	}
	for _, layout := range cvDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("January 2006")
		}
	}
	return raw
}

func formatCVEnd(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Present"
	}
	return formatCVDate(raw)
}
