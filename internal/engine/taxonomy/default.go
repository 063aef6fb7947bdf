package taxonomy

// DefaultRoots returns the built-in product taxonomy that ships with tagger.
func DefaultRoots() []*Category {
	return []*Category{
		Main("Fashion & Clothing", "a product photo of {}, fashion or clothing item",
			Items("Men's Clothing", "shirts", "pants", "suits", "jackets", "t-shirts"),
			Items("Women's Clothing", "dresses", "tops", "skirts", "pants", "blouses"),
			Items("Kids & Baby Clothing", "children's wear", "baby clothes", "kids shoes"),
			Items("Shoes", "sneakers", "boots", "sandals", "formal shoes", "sports shoes"),
			Group("Accessories",
				Items("Bags", "handbags", "backpacks", "wallets"),
				Items("Belts", "leather belts", "fashion belts"),
				Items("Jewelry", "necklaces", "bracelets", "rings"),
				Items("Earrings", "stud earrings", "hoop earrings", "drop earrings"),
			),
		),
		Main("Electronics", "a product photo of {}, electronic device or gadget, showing the complete device",
			Items("Smartphones & Tablets", "complete smartphone", "full mobile phone", "tablet device", "complete mobile device"),
			Items("Laptops & Computers", "laptop computer", "desktop computer", "computer monitor"),
			Items("TV & Home Entertainment", "television set", "sound system", "media player"),
			Items("Cameras", "digital camera", "video camera", "camera lens"),
			Group("Wearables",
				Items("Smartwatches", "smart watch", "fitness tracker"),
			),
			Group("Accessories",
				Items("Chargers", "device charger", "charging adapter"),
				Items("Cables", "connection cable", "charging cable"),
			),
		),
		Main("Home & Furniture", "a product photo of {}, home or furniture item",
			Items("Furniture", "sofas", "beds", "tables", "chairs", "cabinets"),
			Items("Home Decor", "wall art", "vases", "mirrors", "rugs", "cushions"),
			Items("Kitchenware", "pots", "pans", "utensils", "dinnerware"),
			Items("Lighting", "lamps", "ceiling lights", "wall lights"),
			Items("Storage & Organization", "shelves", "storage boxes", "organizers"),
		),
		Main("Appliances", "a product photo of {}, household appliance",
			Group("Large Appliances",
				Items("Refrigerators", "refrigerator", "fridge freezer"),
				Items("Washing Machines", "washing machine", "dryer"),
			),
			Group("Small Appliances",
				Items("Toasters", "toaster", "toaster oven"),
				Items("Vacuum Cleaners", "vacuum cleaner", "handheld vacuum"),
			),
			Group("Kitchen Appliances",
				Items("Microwave", "microwave oven"),
				Items("Coffee Makers", "coffee machine", "espresso maker"),
			),
		),
		Main("Beauty & Personal Care", "a product photo of {}, beauty or personal care product",
			Items("Skincare", "face cream", "serum", "moisturizer", "cleanser"),
			Items("Hair Care", "shampoo", "conditioner", "hair treatment"),
			Items("Makeup", "lipstick", "foundation", "mascara", "eyeshadow"),
			Items("Perfumes", "perfume", "cologne", "fragrance"),
			Items("Men's Grooming", "shaving cream", "aftershave", "beard care"),
		),
		Main("Health & Wellness", "a product photo of {}, health or wellness item",
			Items("Supplements & Vitamins", "vitamins", "supplements", "protein powder"),
			Items("Fitness Equipment", "yoga mat", "weights", "exercise bands"),
			Items("Medical Devices", "blood pressure monitor", "thermometer", "health tracker"),
			Items("Hygiene Products", "sanitizer", "masks", "personal hygiene items"),
		),
		Main("Groceries & Food", "a product photo of {}, food or grocery item",
			Items("Fresh Food", "fruits", "vegetables", "meat", "dairy"),
			Items("Packaged Food", "snacks", "canned food", "pasta", "cereals"),
			Items("Beverages", "coffee", "tea", "soft drinks", "water"),
			Items("Organic & Healthy Food", "organic products", "health food", "superfoods"),
		),
		Main("Baby & Kids", "a product photo of {}, baby or kids item",
			Items("Toys", "educational toys", "stuffed animals", "building blocks"),
			Items("Diapers & Wipes", "baby diapers", "wet wipes", "changing supplies"),
			Items("Baby Food", "formula", "baby snacks", "baby cereals"),
			Items("Nursery Essentials", "cribs", "strollers", "baby monitors"),
		),
		Main("Sports & Outdoors", "a product photo of {}, sports or outdoor equipment",
			Items("Exercise Equipment", "treadmill", "exercise bike", "dumbbells"),
			Items("Outdoor Gear", "camping gear", "hiking equipment", "backpacks"),
			Items("Sportswear", "athletic wear", "sports shoes", "workout clothes"),
			Items("Bikes & Accessories", "bicycles", "bike parts", "cycling gear"),
		),
		Main("Books & Stationery", "a product photo of {}, book or stationery item",
			Items("Fiction & Non-fiction", "novels", "biographies", "textbooks"),
			Items("Academic & Educational", "study guides", "reference books", "educational materials"),
			Items("Office Supplies", "notebooks", "pens", "desk organizers"),
			Items("Art Supplies", "paint supplies", "drawing materials", "craft items"),
		),
		Main("Automotive & Tools", "a product photo of {}, automotive or tool item",
			Items("Car Accessories", "car covers", "car chargers", "car mats"),
			Items("Auto Parts", "engine parts", "filters", "brake parts"),
			Items("Tools & Equipment", "power tools", "hand tools", "tool sets"),
		),
		Main("Pet Supplies", "a product photo of {}, pet supply item",
			Items("Pet Food", "dog food", "cat food", "pet treats"),
			Items("Toys & Accessories", "pet toys", "collars", "leashes"),
			Items("Grooming Products", "pet shampoo", "brushes", "grooming tools"),
		),
		Main("Toys & Games", "a product photo of {}, toy or game item",
			Items("Board Games", "board games", "card games", "strategy games"),
			Items("Puzzles", "jigsaw puzzles", "brain teasers", "3D puzzles"),
			Items("Educational Toys", "learning toys", "science kits", "building sets"),
			Items("Collectibles", "action figures", "model kits", "collectible cards"),
		),
		Main("Mobile & Computer Accessories", "a product photo of {}, clearly showing it is an accessory or case, not the main device",
			Group("Phone Accessories",
				Items("Cases & Covers", "protective phone case", "phone cover", "smartphone case"),
				Items("Screen Protection", "screen protector", "tempered glass"),
				Items("Holders", "phone stand", "phone mount", "phone grip"),
			),
			Items("Computer Peripherals", "computer keyboard", "computer mouse", "external drive"),
		),
		Main("Travel & Luggage", "a product photo of {}, travel or luggage item",
			Items("Luggage & Bags", "suitcases", "travel bags", "backpacks"),
			Items("Travel Accessories", "travel pillows", "luggage tags", "travel adapters"),
		),
	}
}
