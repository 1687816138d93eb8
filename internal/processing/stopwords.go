package processing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultStopwords is the Indonesian function-word list applied to every word cloud.
var DefaultStopwords = []string{
	"yang", "dan", "di", "dari", "ini", "itu", "dengan", "untuk", "pada", "ke",
	"dalam", "oleh", "karena", "sebagai", "adalah", "akan", "telah", "dapat",
	"ada", "juga", "atau", "tidak", "saat", "bisa", "sudah", "saja", "tersebut",
	"bahwa", "lebih", "antara", "namun", "mereka", "kita", "kami", "ia", "dia",
	"belum", "hanya", "masih", "harus", "sebuah", "suatu", "para", "beberapa",
	"sering", "sangat", "sekali", "selalu", "pernah", "sedang", "sendiri",
	"paling", "semua", "setiap", "hingga", "melalui", "terhadap", "tentang",
	"tanpa", "seperti", "lain", "banyak", "jika", "bila", "ketika", "kalau",
	"apakah", "bagaimana", "mengapa", "dimana", "kapan", "siapa",
	"kepada", "bagi", "serta", "yaitu", "yakni", "agar", "supaya", "maka",
	"lalu", "kemudian", "setelah", "sebelum", "sejak", "sampai", "masing",
}

// Stoplist is the YAML shape of an extra stopword file.
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStopwords reads additional stopwords from a YAML file.
func LoadStopwords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stoplist: %w", err)
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("parse stoplist %s: %w", path, err)
	}
	return sl.Terms, nil
}
