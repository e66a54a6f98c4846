package industry

import "strings"

// Code is one of the closed set of industry categories.
type Code string

const (
	Utilities     Code = "utilities"
	HeavyIndustry Code = "heavy_industry"
	Technology    Code = "technology"
	Finance       Code = "finance"
	Consumer      Code = "consumer"
	Healthcare    Code = "healthcare"
	RealEstate    Code = "real_estate"
	Manufacturing Code = "manufacturing"
	Services      Code = "services"
	Default       Code = "default"
)

// keywordEntry maps an industry code to its match keywords.
// Order matters: the first entry with a matching keyword wins.
type keywordEntry struct {
	Code     Code
	Keywords []string
}

// defaultKeywords covers the A-share industry labels returned by quote
// providers. Labels are Chinese free text.
func defaultKeywords() []keywordEntry {
	return []keywordEntry{
		{Utilities, []string{"电力", "水务", "燃气", "公用事业", "能源"}},
		{HeavyIndustry, []string{"钢铁", "水泥", "化工", "有色金属", "煤炭", "石油"}},
		{Technology, []string{"软件", "互联网", "计算机", "电子", "通信", "半导体", "芯片", "IT"}},
		{Finance, []string{"银行", "证券", "保险", "金融"}},
		{Consumer, []string{"食品", "饮料", "零售", "纺织", "家电", "消费"}},
		{Healthcare, []string{"医药", "医疗", "生物制药", "医疗器械"}},
		{RealEstate, []string{"房地产", "建筑", "工程"}},
		{Manufacturing, []string{"机械", "汽车", "电气设备", "制造"}},
		{Services, []string{"传媒", "教育", "旅游", "文化", "娱乐"}},
	}
}

// Classifier maps a free-text industry label to an industry code.
type Classifier struct {
	entries []keywordEntry
}

// NewClassifier builds a classifier over the built-in keyword table.
func NewClassifier() *Classifier {
	return &Classifier{entries: defaultKeywords()}
}

// NewClassifierWithKeywords builds a classifier over a custom ordered table.
func NewClassifierWithKeywords(entries []keywordEntry) *Classifier {
	return &Classifier{entries: entries}
}

// Classify returns the code of the first table entry whose any keyword is
// a substring of the label. Empty or unmatched labels return Default.
func (c *Classifier) Classify(industryName string) Code {
	name := strings.TrimSpace(industryName)
	if name == "" {
		return Default
	}

	for _, entry := range c.entries {
		for _, keyword := range entry.Keywords {
			if strings.Contains(name, keyword) {
				return entry.Code
			}
		}
	}

	return Default
}
