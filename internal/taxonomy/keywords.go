package taxonomy

// defaultKeywords are the built-in Turkish keyword lists used for category
// inference when the wire enum is absent or unmapped. Deployments extend
// them through configuration; keywords must be lowercase.
var defaultKeywords = map[string][]string{
	"politika": {
		"cumhurbaşkanı", "bakan", "meclis", "seçim", "parti",
		"hükümet", "diplomasi", "anayasa",
	},
	"ekonomi": {
		"dolar", "euro", "borsa", "enflasyon", "faiz",
		"ihracat", "merkez bankası", "asgari ücret", "ekonomi",
	},
	"spor": {
		"maç", "gol", "transfer", "futbol", "basketbol",
		"şampiyon", "milli takım", "lig",
	},
	"teknoloji": {
		"yapay zeka", "teknoloji", "uydu", "yazılım",
		"siber", "internet", "robot",
	},
	"saglik": {
		"hastane", "sağlık", "aşı", "tedavi", "doktor", "salgın",
	},
	"kultur": {
		"festival", "konser", "sergi", "sinema", "tiyatro", "müze",
	},
	"egitim": {
		"okul", "öğrenci", "üniversite", "sınav", "eğitim", "öğretmen",
	},
	"dunya": {
		"birleşmiş milletler", "nato", "avrupa birliği", "washington", "brüksel",
	},
	"yasam": {
		"hava durumu", "trafik", "yaşam", "gastronomi",
	},
}
