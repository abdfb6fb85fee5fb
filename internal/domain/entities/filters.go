package entities

import "strings"

// FilterAll is the bucket key that selects everything.
const FilterAll = "ALL"

// Bucket is one filter tab with the number of items it would show.
type Bucket struct {
	Key    string
	Label  string
	Count  int
	Active bool
}

// ProjectBuckets returns the ALL tab followed by one tab per project status.
// Counts apply the search term but not the status filter.
func ProjectBuckets(projects []Project, search, active string) []Bucket {
	if active == "" {
		active = FilterAll
	}
	counts := make(map[ProjectStatus]int)
	total := 0
	for i := range projects {
		if !projects[i].MatchesSearch(search) {
			continue
		}
		counts[projects[i].Status]++
		total++
	}

	buckets := []Bucket{{Key: FilterAll, Label: "Tous", Count: total, Active: active == FilterAll}}
	for _, status := range ProjectStatuses {
		buckets = append(buckets, Bucket{
			Key:    string(status),
			Label:  status.Label(),
			Count:  counts[status],
			Active: active == string(status),
		})
	}
	return buckets
}

// FilterProjects keeps the projects in the status bucket that match search.
func FilterProjects(projects []Project, status, search string) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if status != "" && status != FilterAll && string(p.Status) != status {
			continue
		}
		if !p.MatchesSearch(search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ProjectsWithMember keeps the projects userID belongs to.
func ProjectsWithMember(projects []Project, userID string) []Project {
	out := make([]Project, 0)
	for _, p := range projects {
		if p.HasMember(userID) {
			out = append(out, p)
		}
	}
	return out
}

func (u *User) MatchesSearch(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(u.Name), term) ||
		strings.Contains(strings.ToLower(u.Email), term)
}

// UserBuckets returns the ALL tab followed by one tab per role.
func UserBuckets(users []User, search, active string) []Bucket {
	if active == "" {
		active = FilterAll
	}
	counts := make(map[Role]int)
	total := 0
	for i := range users {
		if !users[i].MatchesSearch(search) {
			continue
		}
		counts[users[i].Role]++
		total++
	}

	buckets := []Bucket{{Key: FilterAll, Label: "Tous", Count: total, Active: active == FilterAll}}
	for _, role := range Roles {
		buckets = append(buckets, Bucket{
			Key:    string(role),
			Label:  role.Label(),
			Count:  counts[role],
			Active: active == string(role),
		})
	}
	return buckets
}

func FilterUsers(users []User, role, search string) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if role != "" && role != FilterAll && string(u.Role) != role {
			continue
		}
		if !u.MatchesSearch(search) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// MemberCandidates lists the active users that may be added to a project:
// employees and clients who are not members yet.
func MemberCandidates(users []User, project *Project) []User {
	out := make([]User, 0)
	for _, u := range users {
		if u.Role != RoleEmployee && u.Role != RoleClient {
			continue
		}
		if !u.IsActive || (project != nil && project.HasMember(u.ID)) {
			continue
		}
		out = append(out, u)
	}
	return out
}
