package extract

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// Only words of four or more letters matter; shorter ones are dropped by length.
var stopwords = map[string]map[string]bool{
	"en": set("about", "above", "after", "again", "against", "also", "because", "been", "before", "being",
		"below", "between", "both", "could", "does", "doing", "down", "during", "each", "even", "from",
		"further", "have", "having", "here", "hers", "herself", "himself", "into", "itself", "just",
		"more", "most", "much", "myself", "only", "other", "ours", "ourselves", "over", "same", "should",
		"some", "such", "than", "that", "their", "theirs", "them", "themselves", "then", "there", "these",
		"they", "this", "those", "through", "under", "until", "very", "were", "what", "when", "where",
		"which", "while", "whom", "will", "with", "would", "your", "yours", "yourself", "yourselves",
		"said", "says", "like", "many", "every", "still", "another", "among", "within", "without"),
	"es": set("algo", "ante", "antes", "aquel", "aquella", "aquello", "como", "contra", "cual", "cuando",
		"desde", "donde", "durante", "ella", "ellas", "ellos", "entre", "esta", "estaba", "estado",
		"estas", "este", "esto", "estos", "hasta", "hay", "mientras", "mismo", "mucho", "muy", "nada",
		"nosotros", "otra", "otras", "otro", "otros", "para", "pero", "poco", "porque", "puede", "sido",
		"sobre", "suyo", "también", "tanto", "tiene", "todo", "todos", "usted", "vosotros", "cada",
		"sino", "según", "sin", "tras", "unos", "unas", "había", "habían", "fueron", "eran", "será"),
	"fr": set("alors", "aussi", "autre", "avant", "avec", "avoir", "cela", "celle", "celui", "cette",
		"comme", "dans", "depuis", "donc", "elle", "elles", "encore", "entre", "être", "leur", "leurs",
		"mais", "même", "nous", "pour", "quand", "quel", "quelle", "sans", "selon", "sont", "sous",
		"tout", "toute", "tous", "très", "vous", "était", "étaient", "avait", "fait", "peut", "plus"),
	"de": set("aber", "alle", "allem", "also", "andere", "auch", "dass", "dein", "deine", "denn",
		"diese", "dieser", "dieses", "doch", "durch", "eine", "einem", "einen", "einer", "eines",
		"habe", "haben", "hatte", "hier", "ihre", "ihren", "immer", "jetzt", "kann", "keine", "machen",
		"mein", "meine", "mich", "mit", "nach", "nicht", "noch", "oder", "schon", "sehr", "sein",
		"seine", "sich", "sind", "über", "unter", "viel", "wenn", "werden", "wird", "wieder", "wurde"),
	"pt": set("ainda", "antes", "aqui", "assim", "como", "contra", "depois", "desde", "eles", "elas",
		"entre", "essa", "esse", "esta", "este", "isso", "isto", "mais", "mesmo", "muito", "nada",
		"nossa", "nosso", "onde", "para", "pela", "pelo", "porque", "quando", "sobre", "também",
		"tem", "tinha", "toda", "todo", "todos", "você", "foram", "seus", "suas", "sido"),
	"it": set("alla", "anche", "ancora", "come", "con", "contro", "dalla", "degli", "della", "dello",
		"dove", "essere", "loro", "molto", "nella", "nello", "noi", "perché", "però", "più", "quale",
		"quando", "quella", "quello", "questa", "questo", "sono", "sopra", "sotto", "stato", "tutti",
		"tutto", "voi", "aveva", "fatto"),
}

// japaneseStopwords are content-word base forms too common to quiz.
var japaneseStopwords = set("する", "いる", "ある", "なる", "れる", "られる", "こと", "もの", "ない", "よう", "ため", "これ", "それ", "ところ")

func stopwordsFor(lang string) map[string]bool {
	if s, ok := stopwords[lang]; ok {
		return s
	}
	return stopwords["en"]
}
