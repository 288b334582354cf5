package tokenizer

var frenchStopwords = []string{
	"le", "la", "les", "l", "un", "une", "des", "du", "de", "d",
	"et", "ou", "mais", "donc", "car", "que", "qui", "quoi",
	"je", "tu", "il", "elle", "on", "nous", "vous", "ils", "elles",
	"ce", "cette", "ces", "mon", "ton", "son", "notre", "votre", "leur",
	"est", "sont", "a", "ont", "fait", "peut", "doit", "etre", "avoir",
	"ne", "pas", "plus", "tres", "bien", "tout", "tous", "toute", "toutes",
	"pour", "dans", "sur", "avec", "sans", "par", "entre", "vers", "chez",
	"au", "aux", "si", "ni", "comme", "meme", "aussi", "encore",
}

var englishStopwords = []string{
	"the", "a", "an", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "do", "does", "did", "will", "would", "could",
	"should", "shall", "may", "might", "must", "can",
	"i", "you", "he", "she", "it", "we", "they", "this", "that", "these",
	"of", "in", "to", "for", "with", "on", "at", "by", "from", "up", "out",
	"and", "or", "but", "if", "not", "no", "yes", "so", "as", "than",
	"very", "too", "just", "only", "also", "about", "more", "some", "any",
	"what", "which", "who", "when", "where", "how", "all", "each", "both",
}

var stopwords = buildStopwords(frenchStopwords, englishStopwords)

func buildStopwords(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, w := range list {
			set[w] = struct{}{}
		}
	}
	return set
}

// IsStopword reports whether the accent-free, lowercased term is a
// French or English stopword.
func IsStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}
