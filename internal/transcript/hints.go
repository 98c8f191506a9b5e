package transcript

import "github.com/Proton-105/bazaar-bot/internal/validate"

// Vocabulary prompts bias the speech model toward the words each step expects.
var vocabulary = map[validate.Kind]string{
	validate.KindAddress:  "میرا پتہ ہے مکان نمبر 5، گلی نمبر 3، بلاک B، ڈیفنس فیز 2، لاہور۔ محلہ، علاقہ، کالونی، سوسائٹی، ٹاؤن، روڈ، بازار، سیکٹر، کراچی، اسلام آباد، راولپنڈی، فیصل آباد، ملتان، پشاور، گوجرانوالہ، سیالکوٹ، حیدرآباد، ساہیوال، بہاولپور",
	validate.KindName:     "My name is Muhammad Ali Khan. Wasif, Wasi, Ahmed, Hassan, Hussain, Umar, Usman, Bilal, Tariq, Imran, Fatima, Ayesha, Zainab, Maryam, Raza, Iqbal, Shah, Malik, Chaudhry, Butt, Rajput, Sheikh, Syed, Qureshi, Ansari, Abbasi, Abdullah, Naeem, Rasool, Rahman",
	validate.KindPhone:    "میرا نمبر ہے صفر تین صفر صفر ایک دو تین چار پانچ چھ سات۔ 03001234567، 03211234567، 03331234567، 03451234567، صفر، ایک، دو، تین، چار، پانچ، چھ، سات، آٹھ، نو، فون نمبر، موبائل نمبر",
	validate.KindQuantity: "مجھے ایک چاہیے۔ ایک، دو، تین، چار، پانچ، چھ، سات، آٹھ، نو، دس، یونٹ، عدد",
}

// Vocabulary returns the recognition hint for kind, or "" when there is none.
func Vocabulary(kind validate.Kind) string {
	return vocabulary[kind]
}
