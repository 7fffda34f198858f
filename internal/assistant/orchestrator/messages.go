// internal/assistant/orchestrator/messages.go

package orchestrator

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"widget-assistant/internal/assistant/knowledge"
)

// Message ids of the built-in localized texts.
const (
	msgGreeting           = "greeting"
	msgClarify            = "clarify"
	msgClarifyCategory    = "clarify_category"
	msgClarifyBudget      = "clarify_budget"
	msgClarifyFeatures    = "clarify_features"
	msgRecommendIntro     = "recommend_intro"
	msgNoProducts         = "no_products"
	msgCompareNeedTwo     = "compare_need_two"
	msgTechnicalUnknown   = "technical_unknown"
	msgTechnicalSpecs     = "technical_specs"
	msgAccessoryIntro     = "accessory_intro"
	msgAccessoryNone      = "accessory_none"
	msgOrderStatus        = "order_status"
	msgOrderStatusNoID    = "order_status_no_id"
	msgShippingPayment    = "shipping_payment"
	msgCustomerService    = "customer_service"
	msgHandoff            = "handoff"
	msgNavigation         = "navigation"
	msgNavigationEmpty    = "navigation_empty"
	msgGeneral            = "general"
	msgTurnFailed         = "turn_failed"
	msgExplainBudget      = "explain_budget"
	msgExplainNearBudget  = "explain_near_budget"
	msgExplainFeatures    = "explain_features"
	msgExplainCategory    = "explain_category"
	msgExplainBrand       = "explain_brand"
	msgExplainPriority    = "explain_priority"
	msgExplainDefault     = "explain_default"
	msgPriceOnRequest     = "price_on_request"
	msgFollowupDefault1   = "followup_default_1"
	msgFollowupDefault2   = "followup_default_2"
	msgFollowupDefault3   = "followup_default_3"
	msgFollowupCategory   = "followup_category"
	msgFollowupBudget     = "followup_budget"
	msgFollowupFeatures   = "followup_features"
	msgFollowupFrameSize  = "followup_frame_size"
	msgFollowupScreenSize = "followup_screen_size"
	msgFollowupRAM        = "followup_ram"
	msgFollowupCapacity   = "followup_capacity"
	msgFollowupMore       = "followup_more"
	msgFollowupAccessory  = "followup_accessory"
	msgFollowupCompare    = "followup_compare"
	msgFollowupUseCase    = "followup_use_case"
	msgFollowupUseCaseAsk = "followup_use_case_ask"
)

var messages = map[string][2]string{
	// {cs, en}
	msgGreeting: {
		"Dobrý den! Rád vám pomohu s výběrem produktu, dopravou, platbou nebo objednávkou.",
		"Hello! I can help you choose a product or answer questions about shipping, payment and orders.",
	},
	msgClarify: {
		"Abych vám mohl doporučit ten správný produkt, potřebuji vědět trochu víc.",
		"To recommend the right product I need to know a little more.",
	},
	msgClarifyCategory: {"Jaký typ produktu hledáte?", "What kind of product are you looking for?"},
	msgClarifyBudget:   {"Jaký máte rozpočet?", "What is your budget?"},
	msgClarifyFeatures: {"Které vlastnosti jsou pro vás důležité?", "Which features matter most to you?"},
	msgRecommendIntro: {
		"Podle vašich požadavků doporučuji:",
		"Based on your requirements I recommend:",
	},
	msgNoProducts: {
		"Bohužel jsem nenašel produkt, který by odpovídal vašim požadavkům. Zkuste prosím upravit rozpočet nebo požadované vlastnosti.",
		"Unfortunately I could not find a product matching your requirements. Please try adjusting your budget or the features you need.",
	},
	msgCompareNeedTwo: {
		"Které dva produkty chcete porovnat? Napište prosím jejich názvy.",
		"Which two products would you like to compare? Please give me their names.",
	},
	msgTechnicalUnknown: {
		"K tomuto dotazu nemám podrobné technické informace. Rád vás spojím s kolegou, který poradí.",
		"I do not have detailed technical information on this. I can put you in touch with a colleague who can help.",
	},
	msgTechnicalSpecs: {"Technické parametry produktu %s: %s.", "Technical specifications of %s: %s."},
	msgAccessoryIntro: {"K produktu %s se hodí:", "These go well with %s:"},
	msgAccessoryNone: {
		"K tomuto produktu teď nemám vhodné příslušenství. Napište mi, jaký typ příslušenství hledáte.",
		"I have no matching accessories for this product right now. Tell me which kind of accessory you need.",
	},
	msgOrderStatus: {
		"Stav objednávky %s ověří náš tým a ozve se vám co nejdříve.",
		"Our team will check the status of order %s and get back to you shortly.",
	},
	msgOrderStatusNoID: {
		"Pro ověření stavu objednávky mi prosím napište její číslo.",
		"Please send me your order number so the status can be checked.",
	},
	msgShippingPayment: {
		"Informace o dopravě a platbě najdete v obchodních podmínkách. Rád vám odpovím i na konkrétní dotaz.",
		"You can find shipping and payment details in the terms and conditions. I am happy to answer a specific question too.",
	},
	msgCustomerService: {
		"Mrzí mě, že řešíte potíže. Popište mi prosím problém a číslo objednávky, předám to zákaznické podpoře.",
		"I am sorry about the trouble. Please describe the problem and your order number and I will pass it to customer support.",
	},
	msgHandoff: {
		"Předal jsem váš požadavek kolegům ze zákaznické podpory, brzy se vám ozvou.",
		"I have passed your request to our customer support team; they will contact you soon.",
	},
	msgNavigation: {"V našem obchodě najdete tyto kategorie: %s.", "Our shop has these categories: %s."},
	msgNavigationEmpty: {
		"Produkty najdete v hlavním menu obchodu. Řekněte mi, co hledáte, a navedu vás.",
		"You will find all products in the shop's main menu. Tell me what you are looking for and I will guide you.",
	},
	msgGeneral: {
		"Děkuji za dotaz. Mohu vám pomoci s výběrem produktu, porovnáním nebo s dotazy k objednávce.",
		"Thanks for your question. I can help you pick or compare products, or with questions about your order.",
	},
	msgTurnFailed: {
		"Omlouvám se, něco se pokazilo. Zkuste to prosím znovu nebo se obraťte na zákaznickou podporu.",
		"Sorry, something went wrong. Please try again or contact customer support.",
	},
	msgExplainBudget:     {"odpovídá vašemu rozpočtu", "fits your budget"},
	msgExplainNearBudget: {"cenou je blízko vašemu rozpočtu", "is priced close to your budget"},
	msgExplainFeatures:   {"splňuje %d z %d požadovaných vlastností", "has %d of %d requested features"},
	msgExplainCategory:   {"patří do hledané kategorie", "is in the category you want"},
	msgExplainBrand:      {"je od značky %s", "is made by %s"},
	msgExplainPriority:   {"patří k doporučovaným produktům obchodu", "is one of the shop's featured products"},
	msgExplainDefault:    {"je nejbližší shodou s vaším dotazem", "is the closest match to your request"},
	msgPriceOnRequest:    {"cena na dotaz", "price on request"},
	msgFollowupDefault1:  {"Mohu vám pomoci s výběrem produktu?", "Can I help you choose a product?"},
	msgFollowupDefault2:  {"Chcete vědět něco o dopravě nebo platbě?", "Would you like to know about shipping or payment?"},
	msgFollowupDefault3:  {"Máte dotaz ke své objednávce?", "Do you have a question about your order?"},
	msgFollowupCategory:  {"Jaký typ produktu hledáte?", "What type of product are you looking for?"},
	msgFollowupBudget:    {"Jaký máte rozpočet?", "What budget do you have in mind?"},
	msgFollowupFeatures:  {"Které vlastnosti jsou pro vás nejdůležitější?", "Which features are most important to you?"},
	msgFollowupFrameSize: {"Jakou velikost rámu potřebujete?", "What frame size do you need?"},
	msgFollowupScreenSize: {
		"Jakou úhlopříčku obrazovky preferujete?",
		"Which screen size do you prefer?",
	},
	msgFollowupRAM:        {"Kolik operační paměti potřebujete?", "How much RAM do you need?"},
	msgFollowupCapacity:   {"Pro kolik osob bude pračka sloužit?", "How many people will the washer serve?"},
	msgFollowupMore:       {"Chcete vědět víc o produktu %s?", "Would you like to know more about %s?"},
	msgFollowupAccessory:  {"Mám vám k produktu %s doporučit příslušenství?", "Shall I recommend accessories for %s?"},
	msgFollowupCompare:    {"Mám porovnat %s a %s?", "Shall I compare %s and %s?"},
	msgFollowupUseCase:    {"Budete produkt používat hlavně na %s?", "Will you mainly use it for %s?"},
	msgFollowupUseCaseAsk: {"K čemu budete produkt hlavně používat?", "What will you mainly use it for?"},
}

// intentFollowups are the per-intent template questions.
var intentFollowups = map[string][][2]string{
	"product_recommendation": {
		{"Chcete zobrazit i levnější varianty?", "Would you like to see cheaper options as well?"},
		{"Mám vám doporučit i příslušenství?", "Shall I recommend accessories too?"},
	},
	"product_comparison": {
		{"Který parametr je pro vás při rozhodování nejdůležitější?", "Which parameter matters most for your decision?"},
		{"Chcete porovnat ještě jiný produkt?", "Would you like to compare another product?"},
	},
	"technical_explanation": {
		{"Chcete vysvětlit ještě jiný parametr?", "Shall I explain another parameter?"},
		{"Mám vám doporučit produkt s tímto parametrem?", "Shall I recommend a product with this feature?"},
	},
	"accessory_recommendation": {
		{"Hledáte i další příslušenství?", "Are you looking for other accessories too?"},
		{"Chcete poradit s kompatibilitou?", "Do you need help with compatibility?"},
	},
	"store_navigation": {
		{"Mám vám doporučit produkt z některé kategorie?", "Shall I recommend a product from one of the categories?"},
	},
	"shipping_payment": {
		{"Chcete vědět, kdy zboží dorazí?", "Would you like to know when the goods will arrive?"},
		{"Zajímají vás možnosti platby?", "Are you interested in payment options?"},
	},
	"customer_service": {
		{"Mám vás spojit s pracovníkem podpory?", "Shall I connect you with a support agent?"},
		{"Máte po ruce číslo objednávky?", "Do you have your order number at hand?"},
	},
	"order_status": {
		{"Potřebujete změnit doručovací adresu?", "Do you need to change the delivery address?"},
		{"Mohu pomoci s něčím dalším k objednávce?", "Can I help with anything else about your order?"},
	},
	"general_question": {
		{"Mohu vám pomoci s výběrem produktu?", "Can I help you choose a product?"},
	},
}

func isEnglish(lang language.Tag) bool {
	return lang == knowledge.English
}

// text returns the localized message, formatted with args when given.
func text(lang language.Tag, id string, args ...interface{}) string {
	pair, ok := messages[id]
	if !ok {
		return ""
	}
	s := pair[0]
	if isEnglish(lang) {
		s = pair[1]
	}
	if len(args) > 0 {
		return fmt.Sprintf(s, args...)
	}
	return s
}

func pick(lang language.Tag, pair [2]string) string {
	if isEnglish(lang) {
		return pair[1]
	}
	return pair[0]
}

// fillTemplate substitutes {placeholders} in a tenant template.
func fillTemplate(tpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}
