package language

import (
	"fmt"

	"github.com/Proton-105/bazaar-bot/internal/domain"
	"github.com/Proton-105/bazaar-bot/internal/validate"
)

const jsonOnlySuffix = "\n\nYou MUST respond with valid JSON only."

func extractionPrompt(kind validate.Kind, lang domain.Language) (string, bool) {
	switch kind {
	case validate.KindName:
		return `Extract the person's full name from the text. The text may be a voice transcription in Urdu or English of a Pakistani person's name. ` +
			`Common Pakistani names include Muhammad, Ali, Ahmed, Hassan, Hussain, Umar, Usman, Bilal, Tariq, Imran, Fatima, Ayesha, Zainab, Maryam, ` +
			`Khan, Raza, Iqbal, Shah, Malik, Chaudhry, Butt, Rajput, Sheikh, Syed, Qureshi. Fix any obvious transcription errors. ` +
			`Respond with JSON: {"name": "extracted name"} or {"name": null} if not found.`, true
	case validate.KindPhone:
		return `Extract Pakistani mobile phone number from the text. The text may be a voice transcription in Urdu where numbers are spoken as words. ` +
			`Convert Urdu number words to digits: صفر=0, ایک=1, دو=2, تین/تن=3, چار=4, پانچ=5, چھ/چھے=6, سات=7, آٹھ=8, نو=9. ` +
			`Also handle English words: zero=0, one=1, two=2, three=3, four=4, five=5, six=6, seven=7, eight=8, nine=9, and "double X" meaning X twice. ` +
			`Look for formats like 03XXXXXXXXX or +923XXXXXXXXX or 92 3XXXXXXXXX. Pakistani mobile numbers always start with 03. ` +
			`Respond with JSON: {"phone": "03XXXXXXXXX"} or {"phone": null} if not found.`, true
	case validate.KindAddress:
		return `Extract the delivery address from the text. Include street, area, city. ` +
			`Respond with JSON: {"address": "extracted address"} or {"address": null} if not found.`, true
	case validate.KindQuantity:
		spoken := "English"
		if lang == domain.LanguageUrdu {
			spoken = "Urdu"
		}
		return fmt.Sprintf(`Extract the quantity/number from the text. Look for numbers or words like "one", "two", etc. in %s. `+
			`Respond with JSON: {"quantity": number} or {"quantity": null} if not found.`, spoken), true
	default:
		return "", false
	}
}

func cleanupPrompt(kind validate.Kind) (string, bool) {
	switch kind {
	case validate.KindName:
		return `You are extracting a Pakistani person's name from two voice transcriptions (English and Urdu) of the same audio.
You will receive both transcriptions. Compare them and extract the correct name.

Rules:
1. The English transcription usually has better spelling of Pakistani names (Ali, Muhammad, Wasif, etc.)
2. The Urdu transcription may help confirm the name if English is garbled.
3. Remove filler words from both: "my name is", "mera naam hai", "mera naam", "English:", "Urdu:", "ji", commas, periods.
4. Fix common misspellings: "Wasee"->"Wasi", "Muhammed"->"Muhammad", "Aly"->"Ali", "Abzar"->"Abuzar", "Naim"->"Naeem", "Rasul"->"Rasool", "Aysha"->"Ayesha"
5. Capitalize first letter of each name part.
6. Pick the transcription that looks most like a real Pakistani name.
7. Do NOT invent names. If both are garbled, return the English one cleaned up.
Respond with JSON: {"cleaned": "The Clean Name"}`, true
	case validate.KindPhone:
		return `You are cleaning up a voice transcription of a Pakistani mobile phone number spoken in Urdu or English.
The number may be spoken as words in Urdu: صفر=0, ایک=1, دو=2, تین=3, چار=4, پانچ=5, چھ/چھے=6, سات=7, آٹھ=8, نو=9.
Or in English: zero=0, one=1, two=2, three=3, four=4, five=5, six=6, seven=7, eight=8, nine=9.
Pakistani mobile numbers start with 03 and have 11 digits total (03XXXXXXXXX).
Remove filler words like "میرا نمبر ہے" or "my number is".
Convert all spoken words to digits and form the complete number.
Respond with JSON: {"cleaned": "03XXXXXXXXX"}`, true
	case validate.KindAddress:
		return `You are cleaning up a voice transcription of a Pakistani delivery address spoken in Urdu or English.
The transcription may have errors in area names, city names, or street numbers.
Common Pakistani cities: Lahore, Karachi, Islamabad, Rawalpindi, Faisalabad, Multan, Peshawar, Gujranwala, Sialkot, Hyderabad.
Common address terms: مکان/house, گلی/street/gali, محلہ/mohalla, بلاک/block, فیز/phase, سیکٹر/sector, کالونی/colony, سوسائٹی/society, ٹاؤن/town, روڈ/road.
Fix obvious transcription errors in place names. Keep the full address intact.
Remove filler words like "میرا پتہ ہے" or "my address is".
Respond with JSON: {"cleaned": "the clean address"}`, true
	case validate.KindQuantity:
		return `You are cleaning up a voice transcription of an order quantity spoken in Urdu or English.
Convert Urdu number words to digits: ایک=1, دو=2, تین=3, چار=4, پانچ=5, چھ=6, سات=7, آٹھ=8, نو=9, دس=10.
Remove filler words like "مجھے چاہیے" or "I want".
Respond with JSON: {"cleaned": "the number as digits"}`, true
	default:
		return "", false
	}
}
