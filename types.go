package codolio

// Profile is the snapshot extracted from one rendered problem-solving page.
// Every map key listed in BasicStatKeys, ProblemKeys and ContestSites is always
// present; values that could not be located hold the "0" sentinel.
type Profile struct {
	BasicStats      map[string]string        `json:"basicStats"`
	ProblemsSolved  map[string]string        `json:"problemsSolved"`
	ContestRankings map[string]ContestRating `json:"contestRankings"`
	Heatmap         []HeatmapCell            `json:"heatmap"`
	DSATopics       map[string]string        `json:"dsaTopics"`
}

// ContestRating is the current rating shown for one contest site.
type ContestRating struct {
	Rating string `json:"rating"`
}

// HeatmapCell is one day of the submission calendar.
type HeatmapCell struct {
	Date        string `json:"date"` // DD/MM/YYYY
	Submissions int    `json:"submissions"`
	ColorClass  string `json:"colorClass"`
	StyleColor  string `json:"styleColor"`
}

// statLabel pairs the text shown on the page with the JSON key it fills.
type statLabel struct {
	Label string
	Key   string
}

const sentinel = "0"

// Landmark is the text whose presence means the page has rendered its stats.
const Landmark = "Total Questions"

var basicStatLabels = []statLabel{
	{"Total Questions", "total_questions"},
	{"Total Active Days", "total_active_days"},
	// total_submissions is matched against the raw markup, see submissionsPattern.
	{"Max.Streak", "max_streak"},
	{"Current.Streak", "current_streak"},
	{"Total Contests", "total_contests"},
	{"Awards", "awards"},
}

var problemLabels = []statLabel{
	{"Fundamentals", "fundamentals"},
	{"DSA", "dsa"},
	{"Easy", "easy"},
	{"Medium", "medium"},
	{"Hard", "hard"},
	{"Competitive Programming", "competitive_programming"},
	{"Codechef", "codechef"},
	{"Codeforces", "codeforces"},
	{"HackerRank", "hackerrank"},
}

var contestLabels = []statLabel{
	{"LeetCode", "leetcode"},
	{"CodeChef", "codechef"},
	{"Codeforces", "codeforces"},
}

// BasicStatKeys lists the keys of Profile.BasicStats in page order.
var BasicStatKeys = []string{
	"total_questions",
	"total_active_days",
	"total_submissions",
	"max_streak",
	"current_streak",
	"total_contests",
	"awards",
}

// ProblemKeys lists the keys of Profile.ProblemsSolved.
var ProblemKeys = keysOf(problemLabels)

// ContestSites lists the keys of Profile.ContestRankings.
var ContestSites = keysOf(contestLabels)

func keysOf(labels []statLabel) []string {
	keys := make([]string, 0, len(labels))
	for _, l := range labels {
		keys = append(keys, l.Key)
	}
	return keys
}
